package mobile

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/large-farva/bfrb-sense/internal/app"
	"github.com/large-farva/bfrb-sense/internal/store"
)

func (d *Daemon) handleConnect(w http.ResponseWriter, r *http.Request) {
	if !app.RequirePost(w, r) {
		return
	}
	var body struct {
		URL string `json:"url"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			app.JSONError(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	url := body.URL
	if url == "" {
		url = d.cfg.Mobile.StreamURL
	}

	err := d.listener.Connect(d.ctx, url)
	switch {
	case errors.Is(err, ErrAlreadyConnected):
		app.JSONError(w, err.Error(), http.StatusConflict)
	case err != nil:
		app.JSONError(w, err.Error(), http.StatusBadGateway)
	default:
		app.WriteJSON(w, http.StatusOK, map[string]any{
			"ok":    true,
			"url":   url,
			"state": d.listener.State(),
		})
	}
}

func (d *Daemon) handleEntries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		date := r.URL.Query().Get("date")
		if date == "" {
			date = store.DateOf(time.Now())
		} else if _, err := time.Parse(time.DateOnly, date); err != nil {
			app.JSONError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day, err := d.flow.Day(r.Context(), date)
		if err != nil {
			app.JSONError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		app.WriteJSON(w, http.StatusOK, day)

	case http.MethodPost:
		var c Completion
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			app.JSONError(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		rec, err := d.flow.Complete(r.Context(), c)
		switch {
		case errors.Is(err, ErrUnknownPending):
			app.JSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrBadDuration), errors.Is(err, ErrBadTimestamp):
			app.JSONError(w, err.Error(), http.StatusBadRequest)
		case err != nil:
			app.JSONError(w, err.Error(), http.StatusInternalServerError)
		default:
			app.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "record": rec})
		}

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (d *Daemon) handlePending(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		app.WriteJSON(w, http.StatusOK, map[string]any{"pending": d.flow.Pending()})
	case http.MethodDelete:
		if err := d.flow.Discard(r.URL.Query().Get("id")); err != nil {
			app.JSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		app.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (d *Daemon) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		app.WriteJSON(w, http.StatusOK, d.flow.Settings())
	case http.MethodPost:
		s := d.flow.Settings()
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			app.JSONError(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := d.flow.SetSettings(s); err != nil {
			app.JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		app.WriteJSON(w, http.StatusOK, s)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
