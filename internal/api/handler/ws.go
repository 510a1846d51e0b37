package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"fanlink/backend/internal/config"
	"fanlink/backend/internal/models"
	"fanlink/backend/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten for production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the HTTP connection and runs the handshake: the
// first frame must be a `handshake` event carrying a valid token. Nothing
// else is processed before that; a failed handshake closes the connection.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	user, authErr := h.awaitHandshake(conn)
	if authErr != nil {
		writeEvent(conn, models.NewEvent(models.EventAuthError, authErr.Payload()))
		conn.Close()
		return
	}

	sess := h.Gateway.NewSession(user)
	client := realtime.NewWebSocketClient(sess, conn, h.Gateway)

	h.Gateway.HandleConnect(client)
	client.Run()
}

// awaitHandshake reads and validates the handshake frame.
func (h *Handler) awaitHandshake(conn *websocket.Conn) (*models.User, *realtime.Error) {
	conn.SetReadDeadline(time.Now().Add(config.HandshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, realtime.NewError(realtime.CodeAuthRequired, "no handshake received")
	}

	var ev models.Event
	if err := json.Unmarshal(raw, &ev); err != nil || ev.Name != models.EventHandshake {
		return nil, realtime.NewError(realtime.CodeAuthRequired, "first frame must be a handshake")
	}

	var p models.HandshakePayload
	if err := json.Unmarshal(ev.Data, &p); err != nil {
		return nil, realtime.NewError(realtime.CodeAuthRequired, "handshake payload missing token")
	}

	user, err := h.Gateway.Authenticate(p.Token)
	if err != nil {
		if coded, ok := err.(*realtime.Error); ok {
			return nil, coded
		}
		return nil, realtime.NewError(realtime.CodeAuthInvalid, "authentication failed")
	}
	return user, nil
}

func writeEvent(conn *websocket.Conn, ev models.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	conn.WriteMessage(websocket.TextMessage, data)
}
