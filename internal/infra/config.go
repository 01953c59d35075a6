package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitPolicy is the per-endpoint admission budget.
type RateLimitPolicy struct {
	Limit  int
	Window time.Duration
}

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	GeoIPDBPath string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAIOrg     string

	GoogleAPIKey     string
	GeminiForceMock  bool
	GeminiImageModel string
	GeminiBaseURL    string
	GeminiMaxRPS     float64

	FalKey         string
	SeedreamModel  string
	FalRunURL      string
	FalRestURL     string
	SeedreamMaxRPS float64

	ProviderTimeout     time.Duration
	GenerateConcurrency int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	GenerateRateLimit RateLimitPolicy
	ImagesRateLimit   RateLimitPolicy
	PromptsRateLimit  RateLimitPolicy
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// No variable is required: missing provider credentials select mock mode.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		GeoIPDBPath: strings.TrimSpace(os.Getenv("GEOIP_DB_PATH")),

		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-5"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:     os.Getenv("OPENAI_ORG"),

		GoogleAPIKey:     strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
		GeminiForceMock:  getEnvBool("GOOGLE_NANO_BANANA_MOCK", false),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.0-flash-preview-image-generation"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiMaxRPS:     getEnvFloat("GEMINI_MAX_RPS", 0),

		FalKey:         strings.TrimSpace(os.Getenv("FAL_KEY")),
		SeedreamModel:  getEnv("SEEDREAM_MODEL", "fal-ai/bytedance/seedream/v4/edit"),
		FalRunURL:      getEnv("FAL_RUN_URL", "https://fal.run"),
		FalRestURL:     getEnv("FAL_REST_URL", "https://rest.alpha.fal.ai"),
		SeedreamMaxRPS: getEnvFloat("SEEDREAM_MAX_RPS", 0),

		ProviderTimeout:     time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 120)),
		GenerateConcurrency: getEnvInt("GENERATE_CONCURRENCY", 3),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),

		GenerateRateLimit: RateLimitPolicy{
			Limit:  getEnvInt("RATE_LIMIT_GENERATE", 30),
			Window: time.Second * time.Duration(getEnvInt("RATE_LIMIT_GENERATE_WINDOW_SECONDS", 300)),
		},
		ImagesRateLimit: RateLimitPolicy{
			Limit:  getEnvInt("RATE_LIMIT_IMAGES", 30),
			Window: time.Second * time.Duration(getEnvInt("RATE_LIMIT_IMAGES_WINDOW_SECONDS", 300)),
		},
		PromptsRateLimit: RateLimitPolicy{
			Limit:  getEnvInt("RATE_LIMIT_PROMPTS", 60),
			Window: time.Second * time.Duration(getEnvInt("RATE_LIMIT_PROMPTS_WINDOW_SECONDS", 300)),
		},
	}

	for name, p := range map[string]RateLimitPolicy{
		"RATE_LIMIT_GENERATE": cfg.GenerateRateLimit,
		"RATE_LIMIT_IMAGES":   cfg.ImagesRateLimit,
		"RATE_LIMIT_PROMPTS":  cfg.PromptsRateLimit,
	} {
		if p.Limit < 1 {
			return nil, fmt.Errorf("%s must be at least 1", name)
		}
		if p.Window <= 0 {
			return nil, fmt.Errorf("%s_WINDOW_SECONDS must be positive", name)
		}
	}

	if cfg.GenerateConcurrency < 1 {
		return nil, fmt.Errorf("GENERATE_CONCURRENCY must be at least 1")
	}

	if cfg.GeminiMaxRPS < 0 || cfg.SeedreamMaxRPS < 0 {
		return nil, fmt.Errorf("provider max rps must not be negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if v == "1" {
			return true
		}
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
