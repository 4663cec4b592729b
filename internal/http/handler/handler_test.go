package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jaekwang-park/todo-notes/internal/middleware"
	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/repository"
	"github.com/jaekwang-park/todo-notes/internal/service"
	"github.com/jaekwang-park/todo-notes/internal/workspace"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var alice = model.Principal{ID: "user-alice", Name: "Alice", Email: "alice@example.com"}

// fixture is a workspace bound to alice over the in-memory store.
type fixture struct {
	repo  *repository.MemoryDocumentRepository
	ws    *workspace.Workspace
	todos *service.TodoService
	notes *service.NoteService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.NewMemoryDocument(discard)
	ws := workspace.New(repo, discard)
	if err := ws.Bind(context.Background(), alice); err != nil {
		t.Fatalf("bind: %v", err)
	}
	t.Cleanup(ws.Unbind)
	// The first snapshot of each list arrives asynchronously.
	waitFor(t, func() bool { return ws.Todos().Revision() > 0 && ws.Notes().Revision() > 0 })

	return &fixture{
		repo:  repo,
		ws:    ws,
		todos: service.NewTodoService(repo),
		notes: service.NewNoteService(repo),
	}
}

func asAlice(req *http.Request) *http.Request {
	return req.WithContext(middleware.SetPrincipal(req.Context(), alice))
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := asAlice(httptest.NewRequest(method, target, &buf))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	return body.Error.Code
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
