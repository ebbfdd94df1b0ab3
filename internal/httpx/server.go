package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-inventory-orders/internal/logger"
	"github.com/ariefcatur/go-inventory-orders/internal/metrics"
)

// Pinger is the store as seen by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter mounts health and metrics. db may be nil, then /healthz does not
// check the database.
func NewRouter(db Pinger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logger.Middleware, metrics.Middleware, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", health(db, time.Now()))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

func health(db Pinger, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, dbState := http.StatusOK, "connected"
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				logger.FromContext(ctx).Warn("health check: database ping", zap.Error(err))
				code, dbState = http.StatusServiceUnavailable, "disconnected"
			}
		}
		status := "ok"
		if code != http.StatusOK {
			status = "degraded"
		}
		writeJSON(w, code, map[string]any{
			"status":   status,
			"database": dbState,
			"uptime":   time.Since(started).Seconds(),
		})
	}
}
