package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxMessageSize = 512

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades an authenticated request and streams the user's notifications.
// userID resolves the caller from the request.
func Handler(hub *Hub, userID func(echo.Context) (primitive.ObjectID, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := userID(c)
		if err != nil {
			return err
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// Upgrade already wrote the error response
			return nil
		}

		client := &Client{UserID: id, conn: conn}
		hub.register(client)
		_ = client.send(Message{
			Type:    MessageTypeConnected,
			Message: "WebSocket connection established",
			UserID:  id.Hex(),
		})

		// the socket is write-only; reading detects the close
		go func() {
			defer hub.unregister(client)
			conn.SetReadLimit(maxMessageSize)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		return nil
	}
}
