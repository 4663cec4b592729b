package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jaekwang-park/todo-notes/internal/capture"
	todohttp "github.com/jaekwang-park/todo-notes/internal/http"
	"github.com/jaekwang-park/todo-notes/internal/middleware"
	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/repository"
	"github.com/jaekwang-park/todo-notes/internal/service"
	"github.com/jaekwang-park/todo-notes/internal/session"
	"github.com/jaekwang-park/todo-notes/internal/workspace"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubIdentity is a session fixed in one state; auth calls are not exercised.
type stubIdentity struct {
	principal model.Principal
	state     session.State
}

func (s *stubIdentity) Current() (model.Principal, session.State) { return s.principal, s.state }

func (s *stubIdentity) Status() session.Status {
	st := session.Status{State: s.state}
	if s.state == session.StateAuthenticated {
		p := s.principal
		st.Principal = &p
	}
	return st
}

func (s *stubIdentity) SignIn(ctx context.Context, email, password string) (model.Principal, error) {
	return model.Principal{}, session.ErrInvalidCredentials
}

func (s *stubIdentity) SignUp(ctx context.Context, name, email, password string) (model.Principal, error) {
	return model.Principal{}, session.ErrEmailAlreadyExists
}

func (s *stubIdentity) Confirm(ctx context.Context, email, code, password string) (model.Principal, error) {
	return model.Principal{}, session.ErrInvalidCode
}

func (s *stubIdentity) ResendConfirmation(ctx context.Context, email string) error { return nil }

func (s *stubIdentity) SignOut(ctx context.Context) error { return session.ErrInvalidTransition }

func (s *stubIdentity) Watch(ctx context.Context) <-chan session.Status {
	ch := make(chan session.Status, 1)
	ch <- s.Status()
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

func newTestDeps(t *testing.T, state session.State) todohttp.Deps {
	t.Helper()
	repo := repository.NewMemoryDocument(discard)
	ws := workspace.New(repo, discard)
	id := &stubIdentity{state: state}
	if state == session.StateAuthenticated {
		id.principal = model.Principal{ID: "user-1", Name: "Jane"}
		if err := ws.Bind(context.Background(), id.principal); err != nil {
			t.Fatalf("bind: %v", err)
		}
		t.Cleanup(ws.Unbind)
	}
	return todohttp.Deps{
		Identity:       id,
		View:           ws,
		Todos:          service.NewTodoService(repo),
		Notes:          service.NewNoteService(repo),
		Capture:        capture.NewSession(nil, "", discard),
		MetricsEnabled: true,
	}
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _ := todohttp.NewRouter(newTestDeps(t, session.StateAnonymous), discard)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != "ok" || result["session"] != "anonymous" || result["workspace"] != "unbound" {
		t.Errorf("unexpected health body: %v", result)
	}
}

func TestRouter_RoutesRegistered(t *testing.T) {
	router, _ := todohttp.NewRouter(newTestDeps(t, session.StateAuthenticated), discard)
	principal := model.Principal{ID: "user-1", Name: "Jane"}

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{"todos", http.MethodGet, "/api/v1/todos", http.StatusOK},
		{"notes", http.MethodGet, "/api/v1/notes", http.StatusOK},
		{"categories", http.MethodGet, "/api/v1/categories", http.StatusOK},
		{"session", http.MethodGet, "/api/v1/auth/session", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"capture", http.MethodGet, "/api/v1/capture", http.StatusOK},
		{"unknown", http.MethodGet, "/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req = req.WithContext(middleware.SetPrincipal(req.Context(), principal))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d (body: %s)", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRouter_MetricsDisabled(t *testing.T) {
	d := newTestDeps(t, session.StateAnonymous)
	d.MetricsEnabled = false
	router, _ := todohttp.NewRouter(d, discard)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestRouter_AuthErrorsAreInline(t *testing.T) {
	router, _ := todohttp.NewRouter(newTestDeps(t, session.StateAnonymous), discard)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid email or password") {
		t.Errorf("expected inline message, got %s", w.Body.String())
	}
}
