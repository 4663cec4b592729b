package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jaekwang-park/todo-notes/internal/http/handler"
	"github.com/jaekwang-park/todo-notes/internal/metrics"
	"github.com/jaekwang-park/todo-notes/internal/middleware"
	"github.com/jaekwang-park/todo-notes/internal/service"
)

// Identity is the process-wide session as used by the shell.
type Identity interface {
	handler.Authenticator
	handler.SessionWatcher
	middleware.SessionReader
}

type Deps struct {
	Identity Identity
	View     handler.LiveView
	Todos    *service.TodoService
	Notes    *service.NoteService
	Capture  handler.Capturer
	// CaptureCtx bounds capture sessions started over HTTP.
	CaptureCtx     context.Context
	MetricsEnabled bool
	Heartbeat      time.Duration
}

// NewRouter returns the API handler and a func that ends open streams.
func NewRouter(d Deps, logger *slog.Logger) (http.Handler, func()) {
	mux := http.NewServeMux()

	// Health check - intentionally outside /api/v1 for ALB health check compatibility
	mux.Handle("/health", handler.NewHealthHandler(d.Identity, d.View))
	if d.MetricsEnabled {
		mux.Handle("/metrics", metrics.Handler())
	}

	mux.Handle("/api/v1/auth/", handler.NewAuthHandler(d.Identity))
	mux.Handle("/api/v1/categories", handler.NewCategoryHandler())
	stream := handler.NewStreamHandler(d.Identity, d.View, d.Heartbeat, logger)
	mux.Handle("/api/v1/stream", stream)

	todoHandler := handler.NewTodoHandler(d.Todos, d.View)
	mux.Handle("/api/v1/todos", todoHandler)
	mux.Handle("/api/v1/todos/", todoHandler)

	noteHandler := handler.NewNoteHandler(d.Notes, d.View)
	mux.Handle("/api/v1/notes", noteHandler)
	mux.Handle("/api/v1/notes/", noteHandler)

	closeAll := stream.Close
	if d.Capture != nil {
		ctx := d.CaptureCtx
		if ctx == nil {
			ctx = context.Background()
		}
		captureHandler := handler.NewCaptureHandler(ctx, d.Capture)
		mux.Handle("/api/v1/capture", captureHandler)
		mux.Handle("/api/v1/capture/", captureHandler)

		watchCtx, stopWatch := context.WithCancel(ctx)
		go captureHandler.CloseOnSignOut(watchCtx, d.Identity)
		closeAll = func() {
			stopWatch()
			stream.Close()
		}
	}

	return mux, closeAll
}
