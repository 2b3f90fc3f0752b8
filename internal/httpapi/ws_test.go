package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoqa/repoqa/internal/index"
)

func dialHub(t *testing.T, hub *Hub, taskID string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, taskID)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n },
		2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastsProgress(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "")
	waitForClients(t, hub, 1)

	hub.NotifyProgress(index.TaskStatus{
		TaskID:         "task-1",
		Status:         index.TaskProcessing,
		Progress:       42.5,
		CurrentFile:    "src/config.py",
		FilesProcessed: 3,
		TotalFiles:     7,
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "indexing_progress", event["type"])
	assert.Equal(t, "task-1", event["task_id"])
	assert.Equal(t, "processing", event["status"])
	assert.Equal(t, 42.5, event["progress"])
	assert.Equal(t, "src/config.py", event["current_file"])
}

func TestHub_TaskScopedSubscription(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "task-2")
	waitForClients(t, hub, 1)

	// An event for a different task is not delivered.
	hub.NotifyProgress(index.TaskStatus{TaskID: "task-1", Status: index.TaskCloning})
	hub.NotifyProgress(index.TaskStatus{TaskID: "task-2", Status: index.TaskCompleted, Progress: 100})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "task-2", event["task_id"])
	assert.Equal(t, "completed", event["status"])
}

func TestHub_RemovesClientOnDisconnect(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "")
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)
}
