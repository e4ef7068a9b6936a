package chat

import (
	"context"
	"time"

	"subzero/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ServeWS runs the connection until the client goes away or is rejected. Frames from one
// connection are handled in order on this goroutine.
func (h *Hub) ServeWS(ctx context.Context, ws *websocket.Conn, user models.ChatUser) {
	conn := NewWSConn(ws)
	m := h.NewMember(conn, user)
	defer func() {
		h.Leave(m)
		conn.Close()
	}()

	ws.SetReadLimit(maxFrameBytes)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Debug("chat connection closed", zap.String("connection", m.ID), zap.Error(err))
			}
			return
		}
		if err := h.HandleMessage(ctx, m, data); err != nil {
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
				time.Now().Add(writeWait))
			return
		}
	}
}
