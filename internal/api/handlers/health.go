package handlers

import (
	"net/http"

	"github.com/gestorfin/backend/internal/api/middleware"
)

// Health handles GET /api/health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
