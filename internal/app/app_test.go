package app

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBase() *Base {
	return NewBase(Options{Name: "testd", Logger: log.New(io.Discard, "", 0), Level: "debug"})
}

func testMux(b *Base, status func() map[string]any) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", b.handleHealthz)
	mux.HandleFunc("/api/status", b.statusHandler(status))
	mux.HandleFunc("/api/version", b.handleVersion)
	mux.HandleFunc("/api/logs", b.handleLogs)
	return mux
}

func getJSON(t *testing.T, h http.Handler, path string) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestStatusMergesTierFields(t *testing.T) {
	b := newTestBase()
	b.Transition("RUNNING")
	mux := testMux(b, func() map[string]any {
		return map[string]any{"alert_state": "IDLE"}
	})

	out := getJSON(t, mux, "/api/status")
	assert.Equal(t, "testd", out["name"])
	assert.Equal(t, "RUNNING", out["state"])
	assert.Equal(t, "IDLE", out["alert_state"])
}

func TestTransitionIgnoresSameState(t *testing.T) {
	b := newTestBase()
	b.Transition("RUNNING")
	published, _ := b.Hub.Counters()
	b.Transition("RUNNING")
	again, _ := b.Hub.Counters()
	assert.Equal(t, published, again)
}

func TestLogsRingFilterAndLimit(t *testing.T) {
	b := newTestBase()
	for i := 0; i < logRingSize+20; i++ {
		b.Log.Infof("line %d", i)
	}
	b.Log.With("relay").Warnf("link closed")

	mux := testMux(b, nil)

	all := getJSON(t, mux, "/api/logs")["logs"].([]any)
	assert.Len(t, all, logRingSize)

	warns := getJSON(t, mux, "/api/logs?level=warn")["logs"].([]any)
	require.Len(t, warns, 1)
	entry := warns[0].(map[string]any)
	assert.Equal(t, "relay", entry["component"])
	assert.Equal(t, "link closed", entry["message"])

	last := getJSON(t, mux, "/api/logs?limit=3")["logs"].([]any)
	assert.Len(t, last, 3)
}

func TestLogsEmptyIsArray(t *testing.T) {
	b := newTestBase()
	out := getJSON(t, testMux(b, nil), "/api/logs?level=error")
	assert.Equal(t, []any{}, out["logs"])
}

func TestHealthzAndVersion(t *testing.T) {
	b := newTestBase()
	mux := testMux(b, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	out := getJSON(t, mux, "/api/version")
	assert.Equal(t, Version, out["version"])
	assert.NotEmpty(t, out["go_version"])
}

func TestRequirePost(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.False(t, RequirePost(rec, httptest.NewRequest(http.MethodGet, "/api/ack", nil)))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	assert.True(t, RequirePost(rec, httptest.NewRequest(http.MethodPost, "/api/ack", nil)))
}

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, "bad date", http.StatusBadRequest)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"bad date"}`, rec.Body.String())
}
