package server

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/ayusman/gazescroll/internal/app"
)

// broadcastInterval paces snapshot pushes at about 15 FPS.
const broadcastInterval = 66 * time.Millisecond

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// SnapshotSource provides the live application state.
type SnapshotSource interface {
	Snapshot() app.Snapshot
}

// SnapshotHandler broadcasts state snapshots to control panels via WebSocket.
type SnapshotHandler struct {
	source  SnapshotSource
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	stopCh  chan struct{}
	once    sync.Once
}

// NewSnapshotHandler creates a new SnapshotHandler and starts broadcasting.
func NewSnapshotHandler(source SnapshotSource) *SnapshotHandler {
	h := &SnapshotHandler{
		source:  source,
		clients: make(map[*websocket.Conn]bool),
		stopCh:  make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		serverLog.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Send the current state right away so the panel does not wait for a change.
	// On an encode failure the broadcaster delivers the next snapshot instead.
	if msg, err := h.encode(); err != nil {
		serverLog.Warn().Err(err).Msg("failed to encode initial snapshot")
	} else {
		h.mu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err = conn.WriteMessage(websocket.TextMessage, msg)
		h.mu.Unlock()
		if err != nil {
			return
		}
	}

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected panels.
func (h *SnapshotHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcaster.
func (h *SnapshotHandler) Close() {
	h.once.Do(func() { close(h.stopCh) })
}

func (h *SnapshotHandler) encode() ([]byte, error) {
	snap := h.source.Snapshot()
	// Seq and UpdatedAt change every frame; drop them so unchanged state is not resent.
	snap.Seq = 0
	snap.UpdatedAt = time.Time{}
	return sonic.Marshal(snap)
}

// broadcast sends changed snapshots to all connected clients.
func (h *SnapshotHandler) broadcast() {
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		msg, err := h.encode()
		if err != nil {
			serverLog.Error().Err(err).Msg("failed to encode snapshot")
			continue
		}
		if bytes.Equal(msg, last) {
			continue
		}
		last = msg

		h.mu.Lock()
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				delete(h.clients, conn)
			}
		}
		h.mu.Unlock()
	}
}
