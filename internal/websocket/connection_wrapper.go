package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

// ConnectionWrapper exposes an upgraded status-feed connection as a
// Connection. Reads, writes, deadlines and the pong handler go straight to
// the embedded gorilla connection.
type ConnectionWrapper struct {
	*websocket.Conn

	remoteAddr string
	closeOnce  sync.Once
	closeErr   error
}

// NewConnectionWrapper wraps conn for a Client.
func NewConnectionWrapper(conn *websocket.Conn) *ConnectionWrapper {
	w := &ConnectionWrapper{Conn: conn}
	if addr := conn.RemoteAddr(); addr != nil {
		w.remoteAddr = addr.String()
	}
	return w
}

// RemoteAddr returns the peer address captured at upgrade time, or "".
func (c *ConnectionWrapper) RemoteAddr() string { return c.remoteAddr }

// Close closes the connection once. Both client pumps close on exit.
func (c *ConnectionWrapper) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.Conn.Close() })
	return c.closeErr
}

var _ Connection = (*ConnectionWrapper)(nil)
