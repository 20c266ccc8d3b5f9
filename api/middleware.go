package api

import (
	"net/http"
	"time"

	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// MiddlewareConfig tunes the server-level wrapping around the route table.
type MiddlewareConfig struct {
	MaxReqPerSec   float64
	AllowedOrigins []string
}

// Wrap applies request logging, CORS and rate limiting around the handler.
func Wrap(h http.Handler, cfg MiddlewareConfig) http.Handler {
	wrapped := h

	if cfg.MaxReqPerSec > 0 {
		lmt := tollbooth.NewLimiter(cfg.MaxReqPerSec, &limiter.ExpirableOptions{
			DefaultExpirationTTL: time.Hour,
		})
		lmt.SetMessage(`{"statusCode":429,"error":"Too Many Requests","message":"rate limit exceeded"}`)
		lmt.SetMessageContentType("application/json")
		wrapped = tollbooth.LimitHandler(lmt, wrapped)
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	wrapped = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(wrapped)

	return logRequests(wrapped)
}

func logRequests(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	})
}
