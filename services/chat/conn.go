package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	maxFrameBytes = 64 << 10
)

// Conn is the write side of a client connection. Send must be safe for concurrent use.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// WSConn wraps a websocket connection so that broadcasts and replies never interleave frames.
type WSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

// Send writes one text frame.
func (c *WSConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WSConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// ReadMessage reads the next frame. Only the connection's read loop may call it.
func (c *WSConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *WSConn) Close() error {
	return c.conn.Close()
}
