package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"productshoot/internal/http/handlers"
	"productshoot/internal/infra"
	"productshoot/internal/middleware"
	"productshoot/internal/ratelimit"
)

// Policies holds the per-endpoint admission budgets.
type Policies struct {
	Generate infra.RateLimitPolicy
	Images   infra.RateLimitPolicy
	Prompts  infra.RateLimitPolicy
}

// PoliciesFromConfig copies the budgets out of the loaded configuration.
func PoliciesFromConfig(cfg *infra.Config) Policies {
	return Policies{
		Generate: cfg.GenerateRateLimit,
		Images:   cfg.ImagesRateLimit,
		Prompts:  cfg.PromptsRateLimit,
	}
}

type Options struct {
	Limiter  *ratelimit.FixedWindow
	Policies Policies
	Metrics  *infra.Metrics
	Country  middleware.CountryLookup
	Logger   zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.New()
	}
	limit := func(scope string, p infra.RateLimitPolicy) func(http.Handler) http.Handler {
		return middleware.RateLimit(limiter, middleware.Policy{Scope: scope, Limit: p.Limit, Window: p.Window}, opts.Metrics, opts.Logger)
	}

	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.Country(opts.Country),
	)

	r.Get("/v1/healthz", app.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.With(limit("generate", opts.Policies.Generate)).Post("/generate", app.Generate)
		r.With(limit("images", opts.Policies.Images)).Post("/images", app.Images)
		r.With(limit("prompts", opts.Policies.Prompts)).Post("/prompts", app.Prompts)
	})

	return r
}
