package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jaekwang-park/todo-notes/internal/middleware"
)

const (
	authRatePerSecond = 1
	authRateBurst     = 10
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(port string, logger *slog.Logger, d Deps) *Server {
	router, closeStreams := NewRouter(d, logger)

	limiter := middleware.NewAuthRateLimiter(authRatePerSecond, authRateBurst, logger)

	// Apply middleware chain: recovery -> request id -> logging -> auth rate limit -> session -> router
	chain := middleware.Recovery(logger)(
		middleware.RequestID(
			middleware.Logging(logger)(
				limiter.Middleware(
					middleware.RequireSession(d.Identity)(router),
				),
			),
		),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      chain,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	srv.RegisterOnShutdown(closeStreams)

	return &Server{httpServer: srv, logger: logger}
}

func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown closes open streams and then drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
