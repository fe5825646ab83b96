package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-roomreq/internal/compost"
	"backend-roomreq/internal/openrouter"
	"backend-roomreq/internal/storage"
	"backend-roomreq/internal/taskmaster"
)

// recordingHub captures broadcast events instead of pushing to sockets.
// Upload processing broadcasts from worker goroutines, hence the lock.
type recordingHub struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHub) Broadcast(sessionID, event string, content any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHub) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

type testEnv struct {
	router *http.ServeMux
	deps   Deps
	hub    *recordingHub
}

func newTestEnv(t *testing.T, upstream http.HandlerFunc) *testEnv {
	t.Helper()
	if upstream == nil {
		upstream = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"gen-1","choices":[{"message":{"role":"assistant","content":"test reply"}}],"usage":{"total_tokens":7}}`))
		}
	}
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	gateway, err := openrouter.NewClient("test-key", openrouter.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	hub := &recordingHub{}
	deps := Deps{
		Gateway:       gateway,
		Conversations: storage.NewMemoryConversations(),
		Compost:       compost.NewService(storage.NewMemoryCompostSessions(), compost.NewProcessor(nil), gateway, nil),
		Tasks:         taskmaster.NewStore(filepath.Join(t.TempDir(), "taskmaster.json"), nil),
		Hub:           hub,
		UploadDir:     t.TempDir(),
	}
	return &testEnv{router: NewRouter(deps), deps: deps, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "Room of Requirements Backend", body["service"])
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/v1/nope", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body["details"], "/api/v1/nope")
}

func TestChatMessageEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/chat/message", map[string]any{
		"message": "hello there",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "test reply", body["message"])
}

func TestChatMessageValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/chat/message", map[string]any{"message": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Message is required", decode(t, rec)["error"])
}

func TestExportConversation(t *testing.T) {
	env := newTestEnv(t, nil)
	sess, _ := env.deps.Conversations.GetOrCreate("sess-42")
	sess.ProjectName = "Exported"
	env.deps.Conversations.Update(sess)

	rec := env.do(t, http.MethodGet, "/api/v1/conversations/sess-42/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "sess-42", body["id"])

	rec = env.do(t, http.MethodGet, "/api/v1/conversations/missing/export", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["totalTasks"])

	rec = env.do(t, http.MethodGet, "/api/v1/tasks/TASK-001", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/tasks/TASK-404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/tasks/TASK-001/status", map[string]any{"status": "in-progress"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/tasks/TASK-001/status", map[string]any{"status": "nonsense"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/tasks/TASK-001/acceptance-criteria/AC-001-1", map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)

	// A missing completed field is rejected, not defaulted.
	rec = env.do(t, http.MethodPut, "/api/v1/tasks/TASK-001/acceptance-criteria/AC-001-1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/tasks/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/tasks/next-recommendation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	recBody := decode(t, rec)
	_, present := recBody["recommendation"]
	assert.True(t, present)
}

func TestCompostSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/compost/session", map[string]any{"projectName": "Demo"})
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode(t, rec)["session"].(map[string]any)
	sessionID := created["id"].(string)
	assert.Equal(t, "Demo", created["projectName"])

	rec = env.do(t, http.MethodGet, "/api/v1/compost/session/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/compost/session/"+sessionID+"/description", map[string]any{"description": "a recipe planner"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/compost/session/"+sessionID+"/description", map[string]any{"description": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Description is required", decode(t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/api/v1/compost/session/"+sessionID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/compost/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listing := decode(t, rec)
	assert.Equal(t, float64(1), listing["totalSessions"])
	assert.Equal(t, float64(0), listing["activeSessions"])

	rec = env.do(t, http.MethodDelete, "/api/v1/compost/session/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/compost/session/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompostUpload(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/compost/session", nil)
	sessionID := decode(t, rec)["session"].(map[string]any)["id"].(string)

	body, contentType := multipartBody(t, map[string]string{
		"notes.txt": "alpha beta gamma",
		"readme.md": "# Overview\n\nSome words here",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compost/session/"+sessionID+"/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	env.router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	out := decode(t, res)
	assert.Equal(t, "Successfully processed 2 files", out["message"])
	assert.Len(t, out["files"], 2)
	assert.Contains(t, env.hub.seen(), "composting-progress")
}

func TestCompostUploadRejectsUnsupportedType(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/compost/session", nil)
	sessionID := decode(t, rec)["session"].(map[string]any)["id"].(string)

	body, contentType := multipartBody(t, map[string]string{"payload.exe": "MZ"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compost/session/"+sessionID+"/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	env.router.ServeHTTP(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, decode(t, res)["error"], "Unsupported file type")
}

func TestCompostUploadUnknownSession(t *testing.T) {
	env := newTestEnv(t, nil)

	body, contentType := multipartBody(t, map[string]string{"notes.txt": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compost/session/none/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	env.router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusNotFound, res.Code)
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = strings.NewReader(content).WriteTo(fw)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
