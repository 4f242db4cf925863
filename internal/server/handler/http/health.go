package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger is anything whose reachability can be checked.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// PingContext calls f.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler reports whether the server's dependencies are reachable.
type HealthHandler struct {
	DB     Pinger
	Cache  Pinger
	Logger *zap.Logger
}

// Health handles GET /healthz.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]Pinger{"database": h.DB, "cache": h.Cache}
	for name, p := range checks {
		if p == nil {
			continue
		}
		if err := p.PingContext(ctx); err != nil {
			if h.Logger != nil {
				h.Logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			}
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "failed": name})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
