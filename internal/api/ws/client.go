package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var errClosed = errors.New("connection closed")

// Client wraps one websocket connection with serialized writes. It
// implements live.Sender.
type Client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn}
}

func (c *Client) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	return c.conn.WriteJSON(v)
}

func (c *Client) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *Client) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	_ = c.conn.Close()
}
