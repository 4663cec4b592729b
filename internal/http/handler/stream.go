package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jaekwang-park/todo-notes/internal/middleware"
	"github.com/jaekwang-park/todo-notes/internal/session"
)

const defaultHeartbeat = 30 * time.Second

// SessionWatcher publishes identity changes.
type SessionWatcher interface {
	Watch(ctx context.Context) <-chan session.Status
}

// LiveView is the workspace as seen by the stream.
type LiveView interface {
	TodoView
	NoteView
	Binding
}

// StreamHandler pushes session, todos and notes changes over Server-Sent
// Events.
//
// SSE Event Types:
//   - session: identity state changed
//   - todos: the todos list was replaced
//   - notes: the notes list was replaced
//   - error: a live query failed and its list stopped updating
type StreamHandler struct {
	sess      SessionWatcher
	view      LiveView
	renderer  *noteRenderer
	heartbeat time.Duration
	logger    *slog.Logger

	closeOnce sync.Once
	closing   chan struct{}
}

func NewStreamHandler(sess SessionWatcher, view LiveView, heartbeat time.Duration, logger *slog.Logger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &StreamHandler{
		sess:      sess,
		view:      view,
		renderer:  newNoteRenderer(),
		heartbeat: heartbeat,
		logger:    logger,
		closing:   make(chan struct{}),
	}
}

// Close ends every open stream. Later requests get an immediately closed
// stream.
func (h *StreamHandler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

type streamError struct {
	Collection string `json:"collection"`
	Message    string `json:"message"`
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("failed to clear write deadline", "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	statuses := h.sess.Watch(ctx)
	todoRevs := h.view.Todos().Watch(ctx)
	noteRevs := h.view.Notes().Watch(ctx)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	h.logger.Debug("stream opened", "request_id", middleware.GetRequestID(r))
	defer h.logger.Debug("stream closed", "request_id", middleware.GetRequestID(r))

	send := func(event string, data any) bool {
		body, err := json.Marshal(data)
		if err != nil {
			h.logger.Error("failed to encode stream event", "event", event, "error", err)
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, body); err != nil {
			return false
		}
		return rc.Flush() == nil
	}
	sendTodos := func() bool {
		list := h.view.Todos()
		if err := list.Err(); err != nil {
			return send("error", streamError{Collection: "todos", Message: err.Error()})
		}
		return send("todos", todoList(list, nil))
	}
	sendNotes := func() bool {
		list := h.view.Notes()
		if err := list.Err(); err != nil {
			return send("error", streamError{Collection: "notes", Message: err.Error()})
		}
		return send("notes", h.renderer.list(list))
	}

	if !sendTodos() || !sendNotes() {
		return
	}

	for {
		select {
		case st, ok := <-statuses:
			if !ok || !send("session", st) {
				return
			}
		case _, ok := <-todoRevs:
			if !ok || !sendTodos() {
				return
			}
		case _, ok := <-noteRevs:
			if !ok || !sendNotes() {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil || rc.Flush() != nil {
				return
			}
		case <-h.closing:
			return
		case <-ctx.Done():
			return
		}
	}
}
