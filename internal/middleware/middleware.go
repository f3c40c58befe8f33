// Package middleware provides the HTTP middleware stack: request ids,
// request logging, panic recovery, CORS, rate limiting, timeouts and
// bearer-token auth.
package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds middleware configuration. A nil CORS disables CORS handling.
type Config struct {
	Logger *zap.Logger

	CORS *CORSConfig

	RateLimit      rate.Limit
	RateLimitBurst int

	RequestTimeout time.Duration
}

// Chain assembles the shared middleware stack, outermost first. Auth is not
// part of the chain; the router applies it per route group.
func Chain(config *Config) func(http.Handler) http.Handler {
	rateLimiter := NewRateLimiter(config.RateLimit, config.RateLimitBurst)

	return func(handler http.Handler) http.Handler {
		h := Timeout(config.RequestTimeout)(handler)
		h = rateLimiter.Middleware()(h)
		if config.CORS != nil {
			h = CORS(config.CORS)(h)
		}
		h = Recovery(config.Logger)(h)
		h = RequestID(h)
		h = Logger(config.Logger)(h)
		return h
	}
}
