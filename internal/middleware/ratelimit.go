package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"productshoot/internal/infra"
	"productshoot/internal/ratelimit"
)

const userAgentKeyLen = 40

// Policy is the admission budget for one route scope.
type Policy struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// ClientKey identifies a caller within a scope as scope:ip:ua. It never fails;
// missing headers degrade to "unknown" and an empty agent.
func ClientKey(r *http.Request, scope string) string {
	ip := forwardedIP(r)
	if ip == "" {
		ip = "unknown"
	}
	ua := r.Header.Get("User-Agent")
	if len(ua) > userAgentKeyLen {
		ua = ua[:userAgentKeyLen]
	}
	return scope + ":" + ip + ":" + ua
}

// forwardedIP reads proxy headers only: X-Forwarded-For (first hop),
// CF-Connecting-IP, then X-Real-IP.
func forwardedIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		first, _, _ := strings.Cut(xf, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	for _, key := range []string{"CF-Connecting-IP", "X-Real-IP"} {
		if ip := strings.TrimSpace(r.Header.Get(key)); ip != "" {
			return ip
		}
	}
	return ""
}

// ClientIP returns the best-effort client IP address, falling back to the
// connection's remote host.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ip := forwardedIP(r); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimitBody struct {
	Error        string `json:"error"`
	RetryAfterMs int64  `json:"retryAfterMs"`
}

// RateLimit admits requests against policy before the handler reads the body.
// Rejections are answered with 429 and never reach next.
func RateLimit(limiter *ratelimit.FixedWindow, policy Policy, metrics *infra.Metrics, l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r, policy.Scope)
			res := limiter.Check(key, policy.Limit, policy.Window)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(policy.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if res.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			retryMs := res.RetryAfterMs()
			metrics.ObserveRateLimited(policy.Scope)
			l.Warn().
				Str("request_id", RequestIDFromContext(r.Context())).
				Str("scope", policy.Scope).
				Int64("retry_after_ms", retryMs).
				Msg("rate limited")

			h.Set("Retry-After", strconv.FormatInt((retryMs+999)/1000, 10))
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(rateLimitBody{Error: "Too many requests", RetryAfterMs: retryMs})
		})
	}
}
