package handlers

import (
	"log"
	"net/http"

	"talentbridge/internal/middleware"
	"talentbridge/internal/realtime"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the deployment's CORS layer; the
		// token check below is what actually authenticates the socket.
		return true
	},
}

// HandleWebSocket authenticates the connection from a token query parameter,
// upgrades it, and hands the socket to the hub. Clients join rooms with
// explicit commands after connecting; nothing is subscribed implicitly.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}
		claims, err := middleware.ValidateToken(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for user %s: %v", claims.UserID, err)
			return
		}

		client := &realtime.Client{
			Hub:    s.Hub,
			UserID: claims.UserID,
			Role:   claims.Role,
			Conn:   conn,
			Send:   make(chan []byte, 256),
		}
		s.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
