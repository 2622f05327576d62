package client

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
)

// WSTransport opens the gateway's push channel over WebSocket. One
// JSON ChangeEvent per text frame, no batching.
type WSTransport struct {
	URL    string
	Dialer *websocket.Dialer
}

func (t *WSTransport) Open(ctx context.Context) (TransportConn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}

	ws, _, err := dialer.DialContext(ctx, t.URL, nil)
	if err != nil {
		return nil, err
	}

	conn := &wsConn{ws: ws, events: make(chan domain.ChangeEvent, 16)}
	go conn.readLoop()
	return conn, nil
}

type wsConn struct {
	ws     *websocket.Conn
	events chan domain.ChangeEvent
}

func (c *wsConn) Events() <-chan domain.ChangeEvent { return c.events }

func (c *wsConn) Close() error { return c.ws.Close() }

func (c *wsConn) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[client] transport read: %v", err)
			}
			return
		}
		var ev domain.ChangeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("[client] dropping undecodable frame: %v", err)
			continue
		}
		c.events <- ev
	}
}
