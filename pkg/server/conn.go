package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one live transport connection to a client device. The registry
// only ever writes whole binary frames; reading and closing stay with the
// gateway's receive loop.
type Conn interface {
	// WriteBinary writes one complete frame as a binary message.
	WriteBinary(data []byte) error
}

// wsConn adapts a gorilla WebSocket connection. Gorilla connections
// support at most one concurrent writer, so writes serialize on a mutex;
// the write deadline keeps a stalled peer from blocking a Push fan-out
// indefinitely.
type wsConn struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newWSConn(conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *wsConn) WriteBinary(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}
