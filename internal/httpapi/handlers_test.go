package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoqa/repoqa/internal/generate"
	"github.com/repoqa/repoqa/internal/index"
	"github.com/repoqa/repoqa/internal/query"
	"github.com/repoqa/repoqa/pkg/types"
)

// newTestServer builds a full HTTP stack over a static generator and a
// catalog seeded with the given files, which also exist on disk.
func newTestServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()

	catalog, err := index.NewCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.Close() })

	if len(files) > 0 {
		root := t.TempDir()
		repo := &index.Repository{
			URL:       "https://github.com/example/webapp",
			Name:      "webapp",
			LocalPath: root,
		}
		require.NoError(t, catalog.UpsertRepository(context.Background(), repo))

		var records []*index.File
		for relPath, content := range files {
			full := filepath.Join(root, relPath)
			require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
			require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
			records = append(records, &index.File{
				Path:        relPath,
				Language:    index.DetectLanguage(filepath.Ext(relPath)),
				SizeBytes:   int64(len(content)),
				ContentHash: relPath, // uniqueness is all the accessor cache needs here
			})
		}
		require.NoError(t, catalog.ReplaceFiles(context.Background(), repo.ID, records))
	}

	svc, err := index.NewService(index.ServiceConfig{
		Catalog:    catalog,
		StorageDir: t.TempDir(),
	})
	require.NoError(t, err)

	engine, err := query.NewEngine(query.Config{
		Generator: generate.NewStaticProvider("The chunk size defaults to 1000 characters."),
		Source:    svc,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	server := httptest.NewServer(NewRouter(NewHandler(engine, svc, NewHub())))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestQueryEndpoint_FullRound(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"src/config.py": "CHUNK_SIZE = 1000\nEMBEDDING_MODEL = \"all-MiniLM-L6-v2\"\n",
		"README.md":     "# webapp\nChunking splits files into pieces.\n",
	})

	resp := postJSON(t, server.URL+"/api/chat/query", types.QueryRequest{
		Query: "What is the default chunk size?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var first types.QueryResponse
	decodeBody(t, resp, &first)
	assert.NotEmpty(t, first.Response)
	assert.NotEmpty(t, first.SessionID)
	assert.NotEmpty(t, first.ConversationID)
	assert.NotEmpty(t, first.Sources)
	assert.Equal(t, "static", first.Model)

	// Follow-up reusing both ids lands in the same conversation.
	resp = postJSON(t, server.URL+"/api/chat/query", types.QueryRequest{
		Query:          "And the overlap?",
		SessionID:      first.SessionID,
		ConversationID: first.ConversationID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second types.QueryResponse
	decodeBody(t, resp, &second)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	histResp, err := http.Get(server.URL + "/api/chat/history?conversation_id=" + first.ConversationID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, histResp.StatusCode)

	var history struct {
		Messages      []types.Message `json:"messages"`
		TotalMessages int             `json:"total_messages"`
	}
	decodeBody(t, histResp, &history)
	assert.Equal(t, 4, history.TotalMessages)
}

func TestQueryEndpoint_EmptyQuery(t *testing.T) {
	server := newTestServer(t, map[string]string{"a.py": "x = 1\n"})

	resp := postJSON(t, server.URL+"/api/chat/query", types.QueryRequest{Query: "   "})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQueryEndpoint_NotIndexed(t *testing.T) {
	server := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/api/chat/query", types.QueryRequest{Query: "anything"})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSessionManagementEndpoints(t *testing.T) {
	server := newTestServer(t, map[string]string{"a.py": "x = 1\n"})

	// Two sessions, one conversation each. Distinct queries keep the
	// second request off the response cache.
	var sessions [2]types.QueryResponse
	for i, q := range []string{"what is a?", "where is a defined?"} {
		resp := postJSON(t, server.URL+"/api/chat/query", types.QueryRequest{Query: q})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeBody(t, resp, &sessions[i])
	}

	listResp, err := http.Get(server.URL + "/api/chat/sessions")
	require.NoError(t, err)
	var listing struct {
		Sessions []types.SessionInfo `json:"sessions"`
	}
	decodeBody(t, listResp, &listing)
	assert.Len(t, listing.Sessions, 2)

	// Clearing one session leaves the other listable.
	resp := postJSON(t, server.URL+"/api/chat/session/clear", map[string]interface{}{
		"session_id": sessions[0].SessionID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cleared types.ClearResult
	decodeBody(t, resp, &cleared)
	assert.Equal(t, 1, cleared.SessionsCleared)
	assert.Equal(t, 1, cleared.ConversationsCleared)

	gone, err := http.Get(server.URL + "/api/chat/session/" + sessions[0].SessionID)
	require.NoError(t, err)
	_ = gone.Body.Close()
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)

	kept, err := http.Get(server.URL + "/api/chat/session/" + sessions[1].SessionID + "/conversations")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, kept.StatusCode)
	var conversations struct {
		Conversations []types.ConversationInfo `json:"conversations"`
	}
	decodeBody(t, kept, &conversations)
	assert.Len(t, conversations.Conversations, 1)
}

func TestConversationEndpoints_UnknownIDs(t *testing.T) {
	server := newTestServer(t, map[string]string{"a.py": "x = 1\n"})

	for _, path := range []string{
		"/api/chat/history?conversation_id=missing",
		"/api/chat/context?conversation_id=missing",
		"/api/chat/conversation/missing",
		"/api/chat/session/missing",
		"/api/index/status/missing",
	} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestIndexEndpoints(t *testing.T) {
	server := newTestServer(t, map[string]string{"src/main.py": "print('hi')\n"})

	statsResp, err := http.Get(server.URL + "/api/index/stats")
	require.NoError(t, err)
	var stats index.Stats
	decodeBody(t, statsResp, &stats)
	assert.True(t, stats.IsIndexed)
	assert.Equal(t, 1, stats.FileCount)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/index/current", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var clearedIdx index.ClearStats
	decodeBody(t, delResp, &clearedIdx)
	assert.Equal(t, 1, clearedIdx.FilesRemoved)

	statsResp, err = http.Get(server.URL + "/api/index/stats")
	require.NoError(t, err)
	decodeBody(t, statsResp, &stats)
	assert.False(t, stats.IsIndexed)
}

func TestIndexStart_RequiresURL(t *testing.T) {
	server := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/api/index/start", map[string]string{})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, map[string]string{"a.py": "x = 1\n"})

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status       string `json:"status"`
		Indexed      bool   `json:"indexed"`
		Model        string `json:"model"`
		CacheEntries int    `json:"cache_entries"`
	}
	decodeBody(t, resp, &health)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Indexed)
	assert.Equal(t, "static", health.Model)
}

func TestDeleteHistory(t *testing.T) {
	server := newTestServer(t, map[string]string{"a.py": "x = 1\n"})

	resp := postJSON(t, server.URL+"/api/chat/query", types.QueryRequest{Query: "what is a?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var answer types.QueryResponse
	decodeBody(t, resp, &answer)

	req, err := http.NewRequest(http.MethodDelete,
		server.URL+"/api/chat/history?conversation_id="+answer.ConversationID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	histResp, err := http.Get(server.URL + "/api/chat/history?conversation_id=" + answer.ConversationID)
	require.NoError(t, err)
	_ = histResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, histResp.StatusCode)
}
