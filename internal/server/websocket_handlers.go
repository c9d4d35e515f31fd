package server

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler upgrades authenticated requests and hands the connection
// to the gateway for its full lifetime. The auth middleware has already
// rejected anything without a valid credential, so a failed handshake leaves
// no trace in the registry.
func (s *Server) WebsocketHandler() fiber.Handler {
	wsHandler := websocket.New(func(conn *websocket.Conn) {
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			log.Printf("WebSocket: unauthenticated connection reached handler")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"message":"unauthorized"}}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		// Reject tokens whose user no longer exists before any registration
		if _, err := s.userRepo.GetByID(context.Background(), userID); err != nil {
			log.Printf("WebSocket: unknown user %d: %v", userID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"message":"unauthorized"}}`))
			_ = conn.Close()
			return
		}

		s.gateway.HandleConnection(conn, userID)
	})

	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return wsHandler(c)
		}
		return fiber.ErrUpgradeRequired
	}
}
