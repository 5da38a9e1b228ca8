package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const maxDashboardConnections = 200

// DashboardHub broadcasts one DashboardSnapshot per second to every
// connected operator dashboard. Grounded on the teacher's
// control_plane/ws_hub.go MetricsHub, narrowed from a per-tenant fan-out
// (this system fronts exactly one upstream workspace) to a flat broadcast.
type DashboardHub struct {
	rec *Recorder
	log zerolog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

func NewDashboardHub(rec *Recorder, log zerolog.Logger) *DashboardHub {
	return &DashboardHub{
		rec:     rec,
		log:     log,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *DashboardHub) Register(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) >= maxDashboardConnections {
		return false
	}
	h.clients[conn] = struct{}{}
	return true
}

func (h *DashboardHub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *DashboardHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run broadcasts a fresh snapshot once a second until ctx is cancelled.
func (h *DashboardHub) Run(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case <-ticker.C:
			h.broadcast()
		}
	}
}

func (h *DashboardHub) broadcast() {
	snapshot := h.rec.DashboardSnapshot()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(snapshot); err != nil {
			h.log.Warn().Err(err).Msg("dashboard websocket write failed")
			go h.Unregister(conn)
		}
	}
}

func (h *DashboardHub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}
