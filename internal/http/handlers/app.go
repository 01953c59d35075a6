package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"productshoot/internal/domain"
	"productshoot/internal/middleware"
	"productshoot/internal/studio"
	"productshoot/internal/usage"
)

// App holds the collaborators shared by the HTTP handlers.
type App struct {
	Studio   *studio.Service
	Recorder usage.Recorder
	Logger   zerolog.Logger
}

func NewApp(svc *studio.Service, recorder usage.Recorder, logger zerolog.Logger) *App {
	return &App{Studio: svc, Recorder: recorder, Logger: logger}
}

type errorResponse struct {
	Error        string `json:"error"`
	RetryAfterMs int64  `json:"retryAfterMs,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, errorResponse{Error: message})
}

// statusFor maps the error taxonomy onto HTTP statuses. Anything unclassified
// is treated as an upstream failure.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// finish writes the response for an operation outcome and emits its completion record.
func (a *App) finish(w http.ResponseWriter, r *http.Request, endpoint string, start time.Time, res studio.Result, err error, body any) {
	status := statusFor(err)
	if err != nil {
		a.error(w, status, err.Error())
	} else {
		a.json(w, status, body)
	}
	if a.Recorder == nil {
		return
	}
	a.Recorder.Record(r.Context(), usage.Record{
		RequestID: middleware.RequestIDFromContext(r.Context()),
		Endpoint:  endpoint,
		Engine:    res.Engine,
		Mock:      res.Mock,
		Status:    status,
		Prompts:   len(res.Prompts),
		Images:    len(res.Images),
		Elapsed:   time.Since(start),
		Country:   middleware.CountryFromContext(r.Context()),
		Err:       err,
	})
}
