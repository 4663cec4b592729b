package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jaekwang-park/todo-notes/internal/capture"
	"github.com/jaekwang-park/todo-notes/internal/cognito"
	"github.com/jaekwang-park/todo-notes/internal/config"
	todohttp "github.com/jaekwang-park/todo-notes/internal/http"
	"github.com/jaekwang-park/todo-notes/internal/repository"
	"github.com/jaekwang-park/todo-notes/internal/service"
	"github.com/jaekwang-park/todo-notes/internal/session"
	"github.com/jaekwang-park/todo-notes/internal/workspace"
)

func main() {
	// Initial logger at info level; reconfigured after config load
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(context.Background()); err != nil {
		logger.Error("application failed", "error", err)
		os.Exit(1)
	}
}

// store is the document and user persistence for one backend.
type store struct {
	docs  repository.DocumentRepository
	users repository.UserRepository
	// listen relays backend change notifications; nil when writes notify
	// subscriptions directly.
	listen func(ctx context.Context) error
	close  func()
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := repository.NewDB(cfg.DB.DSN())
		if err != nil {
			return store{}, err
		}
		if err := repository.EnsurePostgresSchema(ctx, db); err != nil {
			db.Close()
			return store{}, err
		}
		docs := repository.NewPostgresDocument(db, logger)
		return store{
			docs:   docs,
			users:  repository.NewPostgresUser(db),
			listen: func(ctx context.Context) error { return docs.Listen(ctx, cfg.DB.DSN()) },
			close:  func() { db.Close() },
		}, nil

	case config.BackendMongo:
		db, err := repository.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return store{}, err
		}
		disconnect := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Client().Disconnect(ctx)
		}
		docs := repository.NewMongoDocument(db, logger)
		users := repository.NewMongoUser(db)
		if err := docs.EnsureIndexes(ctx); err != nil {
			disconnect()
			return store{}, err
		}
		if err := users.EnsureIndexes(ctx); err != nil {
			disconnect()
			return store{}, err
		}
		return store{docs: docs, users: users, close: disconnect}, nil

	case config.BackendMemory:
		return store{
			docs:  repository.NewMemoryDocument(logger),
			users: repository.NewMemoryUser(),
			close: func() {},
		}, nil
	}
	return store{}, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
}

func run(ctx context.Context) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.ParseLogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("config loaded",
		"env", cfg.AppEnv,
		"port", cfg.ServerPort,
		"store_backend", cfg.StoreBackend,
		"capture_locale", cfg.CaptureLocale,
		"metrics_enabled", cfg.MetricsEnabled,
		"log_level", cfg.LogLevel,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()
	logger.Info("store connected", "backend", cfg.StoreBackend)

	// Cognito client + ID token verifier
	cognitoClient, err := cognito.NewAWSClient(
		ctx,
		cfg.Cognito.Region,
		cfg.Cognito.AppClientID,
		cfg.Cognito.AppClientSecret,
	)
	if err != nil {
		return err
	}
	verifier := cognito.NewVerifier(
		cognito.NewJWKSClient(cognito.JWKSURL(cfg.Cognito.Region, cfg.Cognito.UserPoolID)),
		cognito.Issuer(cfg.Cognito.Region, cfg.Cognito.UserPoolID),
		cfg.Cognito.AppClientID,
	)
	logger.Info("cognito client initialized", "region", cfg.Cognito.Region)

	ws := workspace.New(st.docs, logger)
	sess := session.New(cognitoClient, verifier, st.users, session.NewFileTokenStore(cfg.SessionFile), ws, logger)

	dictation := capture.NewSession(capture.Unsupported{}, cfg.CaptureLocale, logger)
	defer dictation.Close()

	g, gctx := errgroup.WithContext(ctx)

	if st.listen != nil {
		g.Go(func() error { return st.listen(gctx) })
	}

	g.Go(func() error {
		status, err := sess.Resolve(gctx)
		if err != nil {
			return fmt.Errorf("resolve session: %w", err)
		}
		logger.Info("session resolved", "state", status.State.String())
		return nil
	})

	srv := todohttp.NewServer(cfg.ServerPort, logger, todohttp.Deps{
		Identity:       sess,
		View:           ws,
		Todos:          service.NewTodoService(st.docs),
		Notes:          service.NewNoteService(st.docs),
		Capture:        dictation,
		CaptureCtx:     gctx,
		MetricsEnabled: cfg.MetricsEnabled,
	})

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		ws.Unbind()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}
