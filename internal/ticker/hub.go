// Package ticker pushes live price snapshots to websocket clients.
package ticker

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/fintrade/internal/pricefeed"
)

const writeWait = 5 * time.Second

// PriceSource supplies snapshots to broadcast.
type PriceSource interface {
	Prices(ctx context.Context) pricefeed.Snapshot
}

type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Hub struct {
	feed     PriceSource
	interval time.Duration
	log      *zap.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
}

func NewHub(feed PriceSource, interval time.Duration, log *zap.Logger) *Hub {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Hub{
		feed:     feed,
		interval: interval,
		log:      log,
		clients:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Run polls the feed every interval while clients are connected. It
// returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			if h.Clients() == 0 {
				continue
			}
			h.broadcast(wsEvent{Type: "prices", Data: h.feed.Prices(ctx)})
		}
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and streams snapshots until the client leaves.
// The current snapshot is sent immediately.
func (h *Hub) Serve(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	lock := h.register(ws)
	payload, _ := json.Marshal(wsEvent{Type: "prices", Data: h.feed.Prices(c.Request().Context())})
	if err := write(ws, lock, payload); err != nil {
		h.unregister(ws)
		return nil
	}

	// Read loop (discard client messages; protocol is server push)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			h.unregister(ws)
			return nil
		}
	}
}

func (h *Hub) broadcast(evt wsEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("encoding ticker event failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for c, l := range h.clients {
		targets[c] = l
	}
	h.mu.RUnlock()

	for c, l := range targets {
		if err := write(c, l, payload); err != nil {
			h.log.Debug("dropping ticker client", zap.Error(err))
			h.unregister(c)
		}
	}
}

func write(c *websocket.Conn, l *sync.Mutex, payload []byte) error {
	l.Lock()
	defer l.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteMessage(websocket.TextMessage, payload)
}

func (h *Hub) register(c *websocket.Conn) *sync.Mutex {
	l := &sync.Mutex{}
	h.mu.Lock()
	h.clients[c] = l
	h.mu.Unlock()
	return l
}

func (h *Hub) unregister(c *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		_ = c.Close()
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
}
