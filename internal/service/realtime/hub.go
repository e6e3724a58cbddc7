package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	applogger "SentiPulse/pkg/logger"

	"github.com/gorilla/websocket"
)

// SnapshotProvider builds the first message a subscriber receives.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, ticker string) (*models.Snapshot, error)
}

type Config struct {
	BufferSize   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// Hub fans events out to websocket subscribers. A subscriber follows one ticker, or every
// ticker when it subscribed without one.
type Hub struct {
	snapshots SnapshotProvider
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	cfg       Config
	upgrader  websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn   *websocket.Conn
	ticker string
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func NewHub(snapshots SnapshotProvider, metrics domrepo.Metrics, l *applogger.Logger, cfg Config) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Hub{
		snapshots: snapshots,
		metrics:   metrics,
		logger:    l,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

var _ domrepo.EventSink = (*Hub)(nil)

func (h *Hub) Name() string { return "websocket" }

// Deliver queues e for every matching subscriber. Subscribers whose buffer is full are
// disconnected.
func (h *Hub) Deliver(_ context.Context, e models.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		if c.ticker != "" && e.Ticker != "" && c.ticker != e.Ticker {
			continue
		}
		select {
		case c.send <- b:
		case <-c.done:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.metrics.RecordEvent(e.Name, h.Name(), "slow_client")
		h.remove(c)
	}
	return nil
}

// ServeWS upgrades the request and blocks until the subscriber disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, ticker string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	c := &client{
		conn:   conn,
		ticker: ticker,
		send:   make(chan []byte, h.cfg.BufferSize),
		done:   make(chan struct{}),
	}

	if ticker != "" && h.snapshots != nil {
		snap, err := h.snapshots.Snapshot(r.Context(), ticker)
		if err != nil {
			h.logger.Warn("snapshot failed", applogger.String("ticker", ticker), applogger.Error(err))
		} else if b, err := json.Marshal(models.NewEvent(models.EventSnapshot, ticker, snap)); err == nil {
			c.send <- b
		}
	}

	if !h.add(c) {
		c.close()
		return fmt.Errorf("hub closed")
	}
	h.logger.Debug("websocket subscribed", applogger.String("ticker", ticker), applogger.Int("clients", h.Clients()))

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		c.close()
	}
	return nil
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// readPump drains client frames so control messages are processed.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	defer h.remove(c)

	for {
		select {
		case <-c.done:
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
