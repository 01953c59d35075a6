package image

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/time/rate"

	"productshoot/internal/domain"
)

const (
	EngineGemini   = "gemini"
	EngineSeedream = "seedream"

	DefaultEngine = EngineGemini

	MinCount = 1
	MaxCount = 8
)

// SourceImage describes an uploaded asset used as conditioning input.
type SourceImage struct {
	Data []byte
	MIME string
}

// Clone returns a deep copy so concurrent calls never share a buffer.
func (s *SourceImage) Clone() *SourceImage {
	if s == nil {
		return nil
	}
	return &SourceImage{Data: append([]byte(nil), s.Data...), MIME: s.MIME}
}

// Request describes a normalized request passed to any image provider.
type Request struct {
	Image  *SourceImage
	Prompt string
	Count  int
}

// Result holds image references: remote URLs or data URIs.
type Result struct {
	Images []string
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
	Name() string
	// Mock reports whether the provider was built without credentials and
	// only synthesizes placeholders.
	Mock() bool
}

// ClampCount forces n into [MinCount, MaxCount].
func ClampCount(n int) int {
	if n < MinCount {
		return MinCount
	}
	if n > MaxCount {
		return MaxCount
	}
	return n
}

// NormalizeEngine lowercases an engine name and applies the default.
func NormalizeEngine(engine string) string {
	engine = strings.ToLower(strings.TrimSpace(engine))
	if engine == "" {
		return DefaultEngine
	}
	return engine
}

func providerError(engine string, err error) error {
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return err
	}
	return &domain.ProviderError{Provider: engine, Err: err}
}

func waitTurn(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
