package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chaseparty/chase-backend/internal/game"
	"github.com/chaseparty/chase-backend/internal/ratelimit"
	"github.com/chaseparty/chase-backend/internal/ws"
)

func SetupRoutes(h *ws.Hub, mgr *game.Manager, limiter *ratelimit.Limiter, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/rooms", PublicRooms(mgr))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, mgr, limiter, log))
	return r
}
