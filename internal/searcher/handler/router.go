package handler

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/middleware"
)

// RouterConfig carries the optional pieces of the HTTP surface. Nil fields
// switch the matching routes or middleware off.
type RouterConfig struct {
	Analytics      *analytics.Handler
	Health         *health.Checker
	Limiter        *middleware.Limiter
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	RequestTimeout time.Duration
}

// NewRouter builds the API handler.
//
// Route table:
//
//	GET    /api/v1/search              ranked symbol search
//	POST   /api/v1/reindex             rebuild the index from a root
//	POST   /api/v1/files/update        re-index one file
//	POST   /api/v1/files/remove        drop one file
//	GET    /api/v1/stats               index counters
//	GET    /api/v1/cache/stats         query cache counters
//	POST   /api/v1/cache/invalidate    flush the query cache
//	GET    /api/v1/analytics           search analytics
//	GET    /health/live, /health/ready
//	GET    /metrics
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → RateLimit → Timeout → mux
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/search", h.Search)

	mux.HandleFunc("POST /api/v1/reindex", h.Reindex)
	mux.HandleFunc("POST /api/v1/files/update", h.UpdateFile)
	mux.HandleFunc("POST /api/v1/files/remove", h.RemoveFile)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)

	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	if cfg.Analytics != nil {
		mux.HandleFunc("GET /api/v1/analytics", cfg.Analytics.Stats)
	}
	if cfg.Health != nil {
		mux.HandleFunc("GET /health/live", cfg.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", cfg.Health.ReadyHandler())
	}
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	mws := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.CORS(middleware.DefaultCORSConfig()),
		middleware.Metrics(cfg.Metrics),
	}
	if cfg.Limiter != nil {
		mws = append(mws, middleware.RateLimit(cfg.Limiter))
	}
	mws = append(mws, middleware.Timeout(cfg.RequestTimeout))
	return middleware.Chain(mux, mws...)
}
