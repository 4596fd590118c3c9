package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/prophecy/go/internal/models"
	"github.com/mcdev12/prophecy/go/internal/realtime"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// syncView is what the status API needs from a running syncer.
type syncView interface {
	Session() *realtime.Session
	Ready() bool
	Status() realtime.ConnectionStatus
	State() realtime.State
	LastActivity() time.Time
}

type statusResponse struct {
	SessionID    string              `json:"session_id"`
	Ready        bool                `json:"ready"`
	Status       string              `json:"connection_status"`
	State        string              `json:"state"`
	LastActivity *time.Time          `json:"last_activity,omitempty"`
	CurrentUser  *userView           `json:"current_user,omitempty"`
	Counts       map[models.Kind]int `json:"counts"`
}

func setupServer(port string, view syncView, clock clockwork.Clock) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	registerRoutes(mux, view, clock)

	// Wrap with CORS
	handler := c.Handler(mux)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, view syncView, clock clockwork.Clock) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		store := view.Session().Store()
		resp := statusResponse{
			SessionID:   view.Session().ID,
			Ready:       view.Ready(),
			Status:      string(view.Status()),
			State:       string(view.State()),
			CurrentUser: newUserView(store.Self()),
			Counts:      store.Counts(),
		}
		if last := view.LastActivity(); !last.IsZero() {
			resp.LastActivity = &last
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("GET /api/state/{kind}", func(w http.ResponseWriter, r *http.Request) {
		kind, ok := models.ParseKind(r.PathValue("kind"))
		if !ok {
			http.Error(w, "unknown entity kind", http.StatusNotFound)
			return
		}
		if !view.Ready() {
			http.Error(w, "snapshot not loaded", http.StatusServiceUnavailable)
			return
		}
		items, _ := view.Session().Store().List(kind)
		writeJSON(w, http.StatusOK, presentAll(items, clock.Now()))
	})

	mux.HandleFunc("GET /api/state/{kind}/{id}", func(w http.ResponseWriter, r *http.Request) {
		kind, ok := models.ParseKind(r.PathValue("kind"))
		if !ok {
			http.Error(w, "unknown entity kind", http.StatusNotFound)
			return
		}
		if !view.Ready() {
			http.Error(w, "snapshot not loaded", http.StatusServiceUnavailable)
			return
		}
		entity, ok := view.Session().Store().Lookup(kind, r.PathValue("id"))
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, present(entity, clock.Now()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
