package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"productshoot/internal/http/handlers"
	httpapi "productshoot/internal/http/httpapi"
	"productshoot/internal/infra"
	"productshoot/internal/infra/credentials"
	"productshoot/internal/infra/geoip"
	"productshoot/internal/middleware"
	"productshoot/internal/providers/image"
	"productshoot/internal/providers/prompt"
	"productshoot/internal/ratelimit"
	"productshoot/internal/studio"
	"productshoot/internal/usage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	ctx := context.Background()

	// The database is optional: it backs stored provider keys and usage events.
	var sql infra.SQLExecutor
	var store *credentials.Store
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		runner := infra.NewSQLRunner(dbpool, logger)
		sql = runner
		store = credentials.NewStore(runner)
	}

	resolve := func(provider, envValue string) string {
		key, err := store.Resolve(ctx, provider, envValue)
		if err != nil {
			logger.Warn().Err(err).Str("provider", provider).Msg("stored credential lookup failed")
		}
		return key
	}

	var country middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer resolver.Close()
		country = resolver.CountryCode
	}

	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}
	metrics := infra.NewMetrics()

	gemini, err := image.NewGeminiGenerator(image.GeminiOptions{
		APIKey:     resolve(credentials.ProviderGemini, cfg.GoogleAPIKey),
		ForceMock:  cfg.GeminiForceMock,
		Model:      cfg.GeminiImageModel,
		BaseURL:    cfg.GeminiBaseURL,
		HTTPClient: httpClient,
		Limiter:    limiterFor(cfg.GeminiMaxRPS),
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init gemini provider")
	}
	seedream, err := image.NewSeedreamGenerator(image.SeedreamOptions{
		APIKey:     resolve(credentials.ProviderFal, cfg.FalKey),
		Model:      cfg.SeedreamModel,
		RunURL:     cfg.FalRunURL,
		RestURL:    cfg.FalRestURL,
		HTTPClient: httpClient,
		Limiter:    limiterFor(cfg.SeedreamMaxRPS),
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init seedream provider")
	}

	var prompts prompt.Generator = prompt.NewStaticGenerator()
	if key := resolve(credentials.ProviderOpenAI, cfg.OpenAIAPIKey); key != "" {
		openai, err := prompt.NewOpenAIGenerator(prompt.OpenAIOptions{
			APIKey:       key,
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			HTTPClient:   httpClient,
			Logger:       &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init prompt generator")
		}
		prompts = openai
	}

	registry := image.NewRegistry(gemini, seedream)
	svc := studio.NewService(studio.Options{
		Prompts: prompts,
		Images:  registry,
		FanOut:  cfg.GenerateConcurrency,
		Metrics: metrics,
		Logger:  &logger,
	})
	logger.Info().Strs("engines", registry.Engines()).Interface("modes", svc.Modes()).Msg("providers configured")

	app := handlers.NewApp(svc, usage.NewSink(logger, metrics, sql), logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Limiter:  ratelimit.New(),
		Policies: httpapi.PoliciesFromConfig(cfg),
		Metrics:  metrics,
		Country:  country,
		Logger:   logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	// In-flight generations are allowed to finish within the write timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPWriteTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// limiterFor paces outbound calls; zero disables pacing.
func limiterFor(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
