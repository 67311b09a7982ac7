package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

const maxUsernameLen = 20

// WebSocketHandler handles websocket upgrade requests.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a websocket handler.
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandleConnection upgrades a client connection. The self-declared
// username rides along as a query parameter; there is no
// authentication, only a length cap.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}
	if len([]rune(username)) > maxUsernameLen {
		http.Error(w, "username exceeds 20 characters", http.StatusBadRequest)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, username); err != nil {
		log.Error().
			Err(err).
			Str("username", username).
			Msg("failed to upgrade websocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}
}

// HandleConnectionStats returns the live connection count.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]int{
		"total_connections": h.connectionManager.ConnectionCount(),
	})
}

// RegisterRoutes registers websocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
