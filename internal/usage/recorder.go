// Package usage emits the per-request completion record.
package usage

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"productshoot/internal/infra"
	"productshoot/internal/sqlinline"
)

const persistTimeout = 2 * time.Second

// Record summarizes one finished generation request.
type Record struct {
	RequestID string
	Endpoint  string
	Engine    string
	Mock      bool
	Status    int
	Prompts   int
	Images    int
	Elapsed   time.Duration
	Country   string
	Err       error
}

type Recorder interface {
	Record(ctx context.Context, rec Record)
}

// Sink logs every record, feeds metrics, and optionally persists to generation_events.
// Persistence failures are logged and never reach the caller.
type Sink struct {
	logger  zerolog.Logger
	metrics *infra.Metrics
	sql     infra.SQLExecutor
}

// NewSink builds a Sink. metrics and sql may be nil.
func NewSink(logger zerolog.Logger, metrics *infra.Metrics, sql infra.SQLExecutor) *Sink {
	return &Sink{logger: logger, metrics: metrics, sql: sql}
}

func (s *Sink) Record(ctx context.Context, rec Record) {
	ev := s.logger.Info()
	if rec.Err != nil {
		ev = s.logger.Warn().Err(rec.Err)
	}
	ev.Str("request_id", rec.RequestID).
		Str("endpoint", rec.Endpoint).
		Str("engine", rec.Engine).
		Bool("mock", rec.Mock).
		Int("status", rec.Status).
		Int("prompts", rec.Prompts).
		Int("images", rec.Images).
		Int64("elapsed_ms", rec.Elapsed.Milliseconds()).
		Str("country", rec.Country).
		Msg("generation completed")

	s.metrics.ObserveRequest(rec.Endpoint, rec.Status)
	s.metrics.AddImages(rec.Engine, rec.Images)

	if s.sql == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	var errText string
	if rec.Err != nil {
		errText = rec.Err.Error()
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QInsertGenerationEvent,
		rec.RequestID, rec.Endpoint, rec.Engine, rec.Mock, rec.Status,
		rec.Prompts, rec.Images, rec.Elapsed.Milliseconds(), rec.Country, errText,
	); err != nil {
		s.logger.Error().Err(err).Str("request_id", rec.RequestID).Msg("persist generation event")
	}
}

var _ Recorder = (*Sink)(nil)
