package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jitdj/internal/models"
)

// Status is the JSON document served on /status.
type Status struct {
	SessionID    string             `json:"session_id"`
	State        string             `json:"state"`
	Remaining    int                `json:"remaining"`
	Next         *models.QueueItem  `json:"next_item"`
	LastInjected string             `json:"last_injected_identifier"`
	Pending      []models.QueueItem `json:"pending"`
	Recent       []StatusEvent      `json:"recent_events,omitempty"`
}

// StatusEvent is one recent session event, oldest first in [Status.Recent].
type StatusEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusSource is the view of a running session the status endpoint needs.
type StatusSource interface {
	Status() Status
}

// StatusFunc adapts a function to [StatusSource].
type StatusFunc func() Status

func (f StatusFunc) Status() Status { return f() }

// StatusHandler serves the current session state as JSON.
type StatusHandler struct {
	source StatusSource
}

func NewStatusHandler(source StatusSource) *StatusHandler {
	return &StatusHandler{source: source}
}

func (h *StatusHandler) Routes() []string {
	return []string{"/status"}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.source.Status()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RequestLogger logs every request at debug level.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
		})
	}
}
