package handler_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jaekwang-park/todo-notes/internal/http/handler"
	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/projection"
	"github.com/jaekwang-park/todo-notes/internal/repository"
	"github.com/jaekwang-park/todo-notes/internal/service"
	"github.com/jaekwang-park/todo-notes/internal/session"
)

// stubWatcher emits the initial status, then whatever is pushed on next.
type stubWatcher struct {
	initial session.Status
	next    chan session.Status
}

func (s *stubWatcher) Watch(ctx context.Context) <-chan session.Status {
	out := make(chan session.Status, 1)
	out <- s.initial
	go func() {
		defer close(out)
		for {
			select {
			case st := <-s.next:
				select {
				case out <- st:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// failedSource is a subscription that ended with err.
type failedSource struct{ err error }

func (f failedSource) Events() <-chan repository.Snapshot {
	ch := make(chan repository.Snapshot)
	close(ch)
	return ch
}

func (f failedSource) Err() error { return f.err }

// failedView has a todos list whose live query failed.
type failedView struct {
	todos *projection.List[model.Todo]
	notes *projection.List[model.Note]
}

func newFailedView(err error) *failedView {
	v := &failedView{
		todos: projection.NewList("todos", projection.MapTodo, discard),
		notes: projection.NewList("notes", projection.MapNote, discard),
	}
	v.todos.Run(failedSource{err: err})
	return v
}

func (v *failedView) Todos() *projection.List[model.Todo] { return v.todos }
func (v *failedView) Notes() *projection.List[model.Note] { return v.notes }
func (v *failedView) Todo(id string) (model.Todo, bool)   { return model.Todo{}, false }
func (v *failedView) Principal() (model.Principal, bool)  { return model.Principal{}, false }

type sseEvent struct {
	name string
	data string
}

func readEvents(body io.Reader) <-chan sseEvent {
	ch := make(chan sseEvent, 64)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(body)
		var ev sseEvent
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, ": "):
				ch <- sseEvent{name: "heartbeat"}
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			case line == "" && ev.name != "":
				ch <- ev
				ev = sseEvent{}
			}
		}
	}()
	return ch
}

func nextEvent(t *testing.T, events <-chan sseEvent) sseEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("stream closed")
			}
			if ev.name == "heartbeat" {
				continue
			}
			return ev
		case <-timeout:
			t.Fatal("timed out waiting for event")
		}
	}
}

func openStream(t *testing.T, h http.Handler) <-chan sseEvent {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %s", ct)
	}
	return readEvents(resp.Body)
}

func TestStreamHandler_PushesChanges(t *testing.T) {
	f := newFixture(t)
	p := alice
	watcher := &stubWatcher{
		initial: session.Status{State: session.StateAuthenticated, Principal: &p},
		next:    make(chan session.Status),
	}
	events := openStream(t, handler.NewStreamHandler(watcher, f.ws, time.Hour, discard))

	for _, want := range []string{"todos", "notes", "session"} {
		if ev := nextEvent(t, events); ev.name != want {
			t.Fatalf("expected %s event, got %s", want, ev.name)
		}
	}

	if _, err := f.todos.Create(context.Background(), alice.ID, service.CreateTodoInput{Text: "Buy milk"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	ev := nextEvent(t, events)
	if ev.name != "todos" {
		t.Fatalf("expected todos event, got %s", ev.name)
	}
	var list todoListBody
	if err := json.Unmarshal([]byte(ev.data), &list); err != nil {
		t.Fatalf("decode todos event: %v", err)
	}
	if list.Total != 1 || list.Todos[0].Text != "Buy milk" || list.Todos[0].Category != model.CategoryPersonal {
		t.Errorf("unexpected todos payload: %+v", list)
	}

	watcher.next <- session.Status{State: session.StateAnonymous}
	ev = nextEvent(t, events)
	if ev.name != "session" || !strings.Contains(ev.data, `"state":"anonymous"`) {
		t.Errorf("expected anonymous session event, got %s %s", ev.name, ev.data)
	}
}

func TestStreamHandler_ReportsFailedQuery(t *testing.T) {
	watcher := &stubWatcher{initial: session.Status{State: session.StateAnonymous}, next: make(chan session.Status)}
	view := newFailedView(errors.New("permission revoked"))
	events := openStream(t, handler.NewStreamHandler(watcher, view, time.Hour, discard))

	ev := nextEvent(t, events)
	if ev.name != "error" {
		t.Fatalf("expected error event, got %s", ev.name)
	}
	if !strings.Contains(ev.data, `"collection":"todos"`) || !strings.Contains(ev.data, "permission revoked") {
		t.Errorf("unexpected error payload: %s", ev.data)
	}
	if ev := nextEvent(t, events); ev.name != "notes" {
		t.Errorf("expected notes event, got %s", ev.name)
	}
}

func TestStreamHandler_Heartbeat(t *testing.T) {
	f := newFixture(t)
	watcher := &stubWatcher{initial: session.Status{State: session.StateAuthenticated}, next: make(chan session.Status)}
	events := openStream(t, handler.NewStreamHandler(watcher, f.ws, 10*time.Millisecond, discard))

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("stream closed")
			}
			if ev.name == "heartbeat" {
				return
			}
		case <-timeout:
			t.Fatal("no heartbeat received")
		}
	}
}

func TestTodoHandler_ListAfterFailedQuery(t *testing.T) {
	view := newFailedView(errors.New("permission revoked"))
	h := handler.NewTodoHandler(service.NewTodoService(repository.NewMemoryDocument(discard)), view)

	w := doJSON(t, h, http.MethodGet, "/api/v1/todos", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "LIVE_QUERY_FAILED" {
		t.Errorf("expected LIVE_QUERY_FAILED, got %s", code)
	}
}
