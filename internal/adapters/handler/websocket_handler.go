package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/trimwell/insight-service/internal/adapters/middleware"
	"github.com/trimwell/insight-service/internal/adapters/websocket"
)

// WebSocketHandler handles WebSocket connections for realtime summary pushes
type WebSocketHandler struct {
	hub            *websocket.Hub
	authMiddleware *middleware.AuthMiddleware
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *websocket.Hub, authMiddleware *middleware.AuthMiddleware) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		authMiddleware: authMiddleware,
	}
}

// HandleWebSocket handles WebSocket upgrade and connection.
// The token comes from the Authorization header or, for browser clients that
// cannot set headers on upgrade, the token query parameter.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	tokenString := ""
	if authHeader != "" {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}

	if tokenString == "" {
		log.Printf("WebSocket connection rejected: missing token")
		http.Error(w, "unauthorized: missing token", http.StatusUnauthorized)
		return
	}

	userID, role, err := h.authMiddleware.Authenticate(tokenString)
	if err != nil {
		log.Printf("WebSocket connection rejected: %v", err)
		http.Error(w, "unauthorized: invalid token", http.StatusUnauthorized)
		return
	}

	if err := websocket.ServeWS(h.hub, w, r, userID, role); err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
	}
}
