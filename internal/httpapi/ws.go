package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/repoqa/repoqa/internal/index"
)

const (
	// writeWait bounds a single websocket write
	writeWait = 10 * time.Second

	// pongWait is how long a client may stay silent before the connection
	// is considered dead. Pings go out at a fraction of it.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// clientBuffer is the per-client outbound event queue. A client that
	// falls this far behind is dropped rather than blocking the broadcast.
	clientBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The service carries no credentials, so cross-origin dashboards may
	// subscribe to progress directly.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// progressEvent is the wire shape of one progress push
type progressEvent struct {
	Type           string  `json:"type"`
	TaskID         string  `json:"task_id"`
	Status         string  `json:"status"`
	Progress       float64 `json:"progress"`
	CurrentFile    string  `json:"current_file,omitempty"`
	FilesProcessed int     `json:"files_processed"`
	TotalFiles     int     `json:"total_files"`
}

// wsClient is one subscribed websocket connection. An empty taskID
// subscribes to every task.
type wsClient struct {
	conn   *websocket.Conn
	taskID string
	send   chan []byte
}

// Hub fans indexing progress out to websocket subscribers. It implements
// index.Notifier.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// NotifyProgress broadcasts one task snapshot to matching subscribers
func (h *Hub) NotifyProgress(status index.TaskStatus) {
	payload, err := json.Marshal(progressEvent{
		Type:           "indexing_progress",
		TaskID:         status.TaskID,
		Status:         status.Status,
		Progress:       status.Progress,
		CurrentFile:    status.CurrentFile,
		FilesProcessed: status.FilesProcessed,
		TotalFiles:     status.TotalFiles,
	})
	if err != nil {
		log.Printf("failed to encode progress event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.taskID != "" && client.taskID != status.TaskID {
			continue
		}
		select {
		case client.send <- payload:
		default:
			// Slow consumer; drop it and let the read pump clean up.
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// ClientCount returns the number of live subscribers
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and pumps progress events to it until the
// client disconnects. taskID scopes the subscription; empty receives all.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, taskID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		conn:   conn,
		taskID: taskID,
		send:   make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writePump(client)
	h.readPump(client)
}

// readPump drains client frames so pongs are processed, and tears the
// client down when the connection drops.
func (h *Hub) readPump(client *wsClient) {
	defer h.remove(client)

	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump serializes writes for one client: queued events plus keepalive
// pings.
func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// remove detaches a client and closes its queue exactly once
func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	_ = client.conn.Close()
}
