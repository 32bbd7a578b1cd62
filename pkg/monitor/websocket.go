package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 5 * time.Second
	clientBuffer = 32
)

// Message kinds.
const (
	MessageEvent     = "event"
	MessageDashboard = "dashboard"
)

// Message is the envelope written to websocket clients.
type Message struct {
	Kind      string             `json:"kind"`
	Event     *Event             `json:"event,omitempty"`
	Dashboard *DashboardSnapshot `json:"dashboard,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub streams collector events to websocket clients and serves
// the dashboard snapshot as JSON.
type Hub struct {
	mu        sync.RWMutex
	collector *EventCollector
	dashboard *DashboardData
	clients   map[*client]struct{}
	upgrader  websocket.Upgrader
	addr      string
	server    *http.Server
}

// NewHub creates a hub subscribed to collector. A nil dashboard
// is replaced by an empty one.
func NewHub(
	addr string,
	collector *EventCollector,
	dashboard *DashboardData,
) *Hub {
	if dashboard == nil {
		dashboard = NewDashboardData()
	}
	h := &Hub{
		addr:      addr,
		collector: collector,
		dashboard: dashboard,
		clients:   make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	collector.OnEvent(h.dispatch)
	return h
}

// Handler returns the hub's routes: /ws, /dashboard and /health.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/dashboard", h.handleDashboard)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start serves the hub on its address until ctx is done.
func (h *Hub) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              h.addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	h.mu.Lock()
	h.server = server
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitor server: %w", err)
	}
	return nil
}

// Stop shuts the server down and disconnects every client.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	server := h.server
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
	if server != nil {
		return server.Shutdown(ctx)
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) dispatch(event Event) {
	h.dashboard.UpdateFromEvent(event)
	data, err := json.Marshal(Message{Kind: MessageEvent, Event: &event})
	if err != nil {
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// slow client
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	snap := h.dashboard.Snapshot()
	initial, err := json.Marshal(Message{Kind: MessageDashboard, Dashboard: &snap})
	if err != nil {
		_ = conn.Close()
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	c.send <- initial
	h.register(c)

	go c.writePump()
	c.readPump()
	h.unregister(c)
}

// writePump drains send until it is closed.
func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
}

// readPump discards client messages until the connection fails.
func (c *client) readPump() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.dashboard.Snapshot())
}
