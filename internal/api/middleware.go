package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ctxKey int

const requestIDKey ctxKey = iota

const requestIDHeader = "X-Request-Id"

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestIDMiddleware must wrap everything else: it is the only layer that replaces the request.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func loggingMiddleware(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint, fmt.Sprintf("%dxx", recorder.status/100))

		logger.Info().
			Str("request_id", requestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
type HTTPAuth struct {
	cfg     config.APIConfig
	keys    *keyRing
	limiter *keyLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{
		cfg:     cfg,
		keys:    newKeyRing(cfg.Auth),
		limiter: newKeyLimiter(cfg.RateLimit),
	}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		required, public := requiredPermissionHTTP(r)
		if public {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			apiKey := strings.TrimSpace(r.Header.Get(a.keys.header))
			if _, err := a.keys.authorize(apiKey, required); err != nil {
				statusCode := http.StatusUnauthorized
				kind := "unauthorized"
				if errors.Is(err, errPermissionDenied) {
					statusCode = http.StatusForbidden
					kind = "forbidden"
				}
				writeError(w, statusCode, kind, err.Error())
				return
			}
		}

		if !a.limiter.Allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requiredPermissionHTTP returns the permission a request needs, or public=true for probes.
func requiredPermissionHTTP(r *http.Request) (perm string, public bool) {
	path := r.URL.Path
	switch {
	case path == "/healthz":
		return "", true
	case strings.HasPrefix(path, "/bookings"):
		if r.Method == http.MethodGet {
			return permReadBookings, false
		}
		return permWriteBookings, false
	case strings.HasPrefix(path, "/items") && r.Method == http.MethodGet:
		return permReadItems, false
	case strings.HasPrefix(path, "/items"):
		return permWriteComments, false
	}
	return "", false
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.keys.header)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

// userRateLimitMiddleware limits requests per calling user; limiter errors let the request through.
func userRateLimitMiddleware(cfg config.UserRateLimitConfig, limiter domain.RateLimiter, logger *zerolog.Logger, next http.Handler) http.Handler {
	if !cfg.Enabled || limiter == nil {
		return next
	}

	requests := cfg.Requests
	if requests <= 0 {
		requests = models.DefaultRateLimitRequests
	}
	windowSeconds := cfg.WindowSeconds
	if windowSeconds <= 0 {
		windowSeconds = models.DefaultRateLimitWindow
	}
	window := time.Duration(windowSeconds) * time.Second

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(models.UserIDHeader)), 10, 64)
		if err != nil || userID <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := limiter.CheckRateLimit(r.Context(), userID, requests, window)
		if err != nil {
			logger.Warn().Err(err).Int64("user_id", userID).Msg("User rate limit check failed")
		} else if !allowed {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
