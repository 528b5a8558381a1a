package gateway

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 20
	sendBuffer     = 32
)

// Client is one connected WebSocket peer.
type Client struct {
	ID     string
	conn   *websocket.Conn
	server *Server
	send   chan Envelope
	done   chan struct{}
}

func newClient(id string, conn *websocket.Conn, server *Server) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		server: server,
		send:   make(chan Envelope, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Send queues an envelope for delivery. It drops the event when the client's
// outbound buffer is full or the connection is closing, so slow consumers
// cannot stall the handlers.
func (c *Client) Send(env Envelope) bool {
	select {
	case c.send <- env:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *Client) sendError(message string) {
	c.Send(mustEnvelope(EventError, ErrorPayload{Message: message}))
}

func (c *Client) readPump() {
	defer c.server.disconnect(c)
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendError("could not parse event")
			continue
		}
		c.server.dispatch(c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
