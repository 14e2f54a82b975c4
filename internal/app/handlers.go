package app

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"

	"github.com/large-farva/bfrb-sense/internal/eventlog"
)

func (b *Base) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (b *Base) statusHandler(extra func() map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"name":           b.Name,
			"state":          b.State(),
			"uptime_seconds": int64(b.Uptime().Seconds()),
			"ws_clients":     b.Hub.Clients(),
		}
		if extra != nil {
			for k, v := range extra() {
				resp[k] = v
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func (b *Base) handleVersion(w http.ResponseWriter, _ *http.Request) {
	goVersion := GoVersion
	if goVersion == "unknown" {
		goVersion = runtime.Version()
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"version":    Version,
		"go_version": goVersion,
		"built_at":   BuiltAt,
	})
}

func (b *Base) handleLogs(w http.ResponseWriter, r *http.Request) {
	b.logBufMu.Lock()
	entries := make([]eventlog.Entry, len(b.logBuf))
	copy(entries, b.logBuf)
	b.logBufMu.Unlock()

	if level := r.URL.Query().Get("level"); level != "" {
		var filtered []eventlog.Entry
		for _, e := range entries {
			if e.Level == level {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}
	if entries == nil {
		entries = []eventlog.Entry{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"logs": entries})
}

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError writes {"ok":false,"error":msg}.
func JSONError(w http.ResponseWriter, msg string, code int) {
	WriteJSON(w, code, map[string]any{"ok": false, "error": msg})
}

// RequirePost rejects anything but POST with 405. It reports whether the
// handler should continue.
func RequirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
