package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
	"github.com/Selvababu93/realtime-inventory/internal/port"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// Gateway holds one bus subscription and relays every event, verbatim,
// to all connected WebSocket clients. The push channel is one-way: the
// read side of each connection is drained only to detect closure. A
// write failure drops that one connection and never blocks the rest.
// Clients joining late see nothing published before they registered;
// they are expected to fetch a snapshot themselves.
type Gateway struct {
	bus      port.EventBus
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*clientConn
}

type clientConn struct {
	id      string
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func NewGateway(bus port.EventBus) *Gateway {
	return &Gateway{
		bus:   bus,
		conns: make(map[string]*clientConn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run subscribes to the bus and fans events out until ctx is done.
func (g *Gateway) Run(ctx context.Context) error {
	sub, err := g.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.closeAll()
			return ctx.Err()
		case <-ticker.C:
			g.pingAll()
		case ev, ok := <-sub.Events():
			if !ok {
				g.closeAll()
				return nil
			}
			g.broadcast(ev)
		}
	}
}

// HandleWS upgrades the request and registers the connection for
// fan-out until the peer goes away.
func (g *Gateway) HandleWS(c *gin.Context) {
	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[gateway] upgrade failed: %v", err)
		return
	}

	conn := &clientConn{id: uuid.NewString(), ws: ws}
	g.register(conn)
	defer g.deregister(conn.id)

	// Drain incoming frames; clients send nothing we act on, but the
	// read loop is how we learn the connection closed.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[gateway] read error on %s: %v", conn.id, err)
			}
			return
		}
	}
}

func (g *Gateway) broadcast(ev domain.ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[gateway] marshal event: %v", err)
		return
	}

	for _, conn := range g.snapshot() {
		if err := conn.writeText(payload); err != nil {
			log.Printf("[gateway] write to %s failed, dropping: %v", conn.id, err)
			g.deregister(conn.id)
			conn.ws.Close()
		}
	}
}

func (c *clientConn) writeText(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (g *Gateway) register(conn *clientConn) {
	g.mu.Lock()
	g.conns[conn.id] = conn
	n := len(g.conns)
	g.mu.Unlock()
	log.Printf("[gateway] websocket connected. total connections: %d", n)
}

func (g *Gateway) deregister(id string) {
	g.mu.Lock()
	_, ok := g.conns[id]
	delete(g.conns, id)
	n := len(g.conns)
	g.mu.Unlock()
	if ok {
		log.Printf("[gateway] websocket disconnected. total connections: %d", n)
	}
}

// snapshot copies the fan-out set so broadcasting never holds the lock
// across network writes. A conn registered mid-broadcast may or may
// not see that event; the at-most-once contract allows either.
func (g *Gateway) snapshot() []*clientConn {
	g.mu.Lock()
	defer g.mu.Unlock()
	conns := make([]*clientConn, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	return conns
}

func (g *Gateway) pingAll() {
	for _, conn := range g.snapshot() {
		conn.writeMu.Lock()
		conn.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		conn.writeMu.Unlock()
	}
}

func (g *Gateway) closeAll() {
	for _, conn := range g.snapshot() {
		conn.writeMu.Lock()
		conn.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second),
		)
		conn.writeMu.Unlock()
		conn.ws.Close()
		g.deregister(conn.id)
	}
}
