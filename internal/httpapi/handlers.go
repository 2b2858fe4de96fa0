package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/chaseparty/chase-backend/internal/game"
)

// PublicRooms serves the same discoverable-room listing the socket pushes,
// so lobby screens can show rooms before their connection is up.
func PublicRooms(mgr *game.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(mgr.PublicRooms())
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
