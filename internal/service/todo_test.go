package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/projection"
	"github.com/jaekwang-park/todo-notes/internal/repository"
	"github.com/jaekwang-park/todo-notes/internal/service"
)

func TestTodoCreate(t *testing.T) {
	tests := []struct {
		name      string
		input     service.CreateTodoInput
		repoErr   error
		wantErr   error
		wantText  string
		wantCateg string
	}{
		{
			name:      "success",
			input:     service.CreateTodoInput{Text: "  Buy milk ", Category: "shopping"},
			wantText:  "Buy milk",
			wantCateg: "shopping",
		},
		{
			name:      "default category",
			input:     service.CreateTodoInput{Text: "Call mom"},
			wantText:  "Call mom",
			wantCateg: "personal",
		},
		{
			name:    "blank text",
			input:   service.CreateTodoInput{Text: "   "},
			wantErr: service.ErrInvalidInput,
		},
		{
			name:    "unknown category",
			input:   service.CreateTodoInput{Text: "X", Category: "errands"},
			wantErr: service.ErrInvalidInput,
		},
		{
			name:    "network failure",
			input:   service.CreateTodoInput{Text: "X"},
			repoErr: &repository.WriteError{Op: "create", Collection: repository.CollectionTodos, Kind: repository.ErrNetworkFailure, Err: errors.New("dial tcp")},
			wantErr: repository.ErrNetworkFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got repository.Fields
			repo := &mockDocumentRepo{
				createFn: func(ctx context.Context, collection repository.Collection, ownerID string, fields repository.Fields) (string, error) {
					if collection != repository.CollectionTodos || ownerID != "user-1" {
						t.Errorf("unexpected target %s/%s", collection, ownerID)
					}
					got = fields
					if tt.repoErr != nil {
						return "", tt.repoErr
					}
					return "todo-1", nil
				},
			}
			svc := service.NewTodoService(repo)

			id, err := svc.Create(context.Background(), "user-1", tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != "todo-1" {
				t.Errorf("expected id todo-1, got %s", id)
			}
			if got["text"] != tt.wantText || got["category"] != tt.wantCateg || got["completed"] != false {
				t.Errorf("unexpected fields: %v", got)
			}
			if _, ok := got["createdAt"].(time.Time); !ok {
				t.Errorf("expected createdAt timestamp, got %T", got["createdAt"])
			}
		})
	}
}

func TestTodoToggle_FlipsStoredFlag(t *testing.T) {
	var calls []string
	repo := &mockDocumentRepo{
		flipFn: func(ctx context.Context, collection repository.Collection, ownerID, id, field string) error {
			calls = append(calls, fmt.Sprintf("%s/%s/%s/%s", collection, ownerID, id, field))
			return nil
		},
	}

	if err := service.NewTodoService(repo).Toggle(context.Background(), "user-1", "todo-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 1 || calls[0] != "todos/user-1/todo-1/completed" {
		t.Errorf("unexpected flip calls: %v", calls)
	}
}

func TestTodoMutations_NotFound(t *testing.T) {
	repo := &mockDocumentRepo{
		updateFn: func(ctx context.Context, collection repository.Collection, ownerID, id string, fields repository.Fields) error {
			return repository.ErrNotFound
		},
		flipFn: func(ctx context.Context, collection repository.Collection, ownerID, id, field string) error {
			return repository.ErrNotFound
		},
		deleteFn: func(ctx context.Context, collection repository.Collection, ownerID, id string) error {
			return repository.ErrNotFound
		},
	}
	svc := service.NewTodoService(repo)
	ctx := context.Background()

	if err := svc.Toggle(ctx, "user-1", "missing"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("toggle: expected ErrNotFound, got %v", err)
	}
	if err := svc.Update(ctx, "user-1", "missing", service.UpdateTodoInput{Text: "x"}); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("update: expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "user-1", "missing"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("delete: expected ErrNotFound, got %v", err)
	}
}

func TestTodoDelete_PermissionDenied(t *testing.T) {
	repo := &mockDocumentRepo{
		deleteFn: func(ctx context.Context, collection repository.Collection, ownerID, id string) error {
			return &repository.WriteError{Op: "delete", Collection: collection, Kind: repository.ErrPermissionDenied, Err: errors.New("42501")}
		},
	}

	err := service.NewTodoService(repo).Delete(context.Background(), "user-1", "todo-1")
	if !errors.Is(err, repository.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestTodoUpdate_RejectsBlankText(t *testing.T) {
	repo := &mockDocumentRepo{}

	err := service.NewTodoService(repo).Update(context.Background(), "user-1", "todo-1", service.UpdateTodoInput{Text: " "})
	if !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTodoRequiresOwner(t *testing.T) {
	svc := service.NewTodoService(&mockDocumentRepo{})

	if _, err := svc.Create(context.Background(), "", service.CreateTodoInput{Text: "x"}); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

// The remaining tests observe effects only through a live subscription.

func subscribeTodos(t *testing.T, repo repository.DocumentRepository, owner string) *repository.Subscription {
	t.Helper()
	sub, err := repo.Subscribe(context.Background(), repository.Query{
		Collection: repository.CollectionTodos,
		OwnerID:    owner,
		OrderField: model.TodoFieldCreatedAt,
		Direction:  repository.Descending,
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(sub.Cancel)
	return sub
}

func todosOf(snap repository.Snapshot) []model.Todo {
	out := make([]model.Todo, 0, len(snap.Documents))
	for _, d := range snap.Documents {
		todo, _ := projection.MapTodo(d, time.Now())
		out = append(out, todo)
	}
	return out
}

func TestTodo_CreateUpdateExample(t *testing.T) {
	repo := repository.NewMemoryDocument(discard)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	sub := subscribeTodos(t, repo, "user-1")
	before := len(nextSnapshot(t, sub).Documents)

	id, err := svc.Create(ctx, "user-1", service.CreateTodoInput{Text: "Buy milk", Category: "shopping"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	todos := todosOf(nextSnapshot(t, sub))
	if len(todos) != before+1 {
		t.Fatalf("expected one additional entry, got %d", len(todos)-before)
	}
	created := todos[0]
	if created.ID != id || created.Text != "Buy milk" || created.Completed || created.Category != model.CategoryShopping {
		t.Fatalf("unexpected created todo: %+v", created)
	}

	if err := svc.Update(ctx, "user-1", id, service.UpdateTodoInput{Text: "Buy milk and eggs", Description: ""}); err != nil {
		t.Fatalf("update: %v", err)
	}

	updated := todosOf(nextSnapshot(t, sub))[0]
	if updated.Text != "Buy milk and eggs" || updated.Description != "" {
		t.Errorf("unexpected text/description: %+v", updated)
	}
	if updated.Completed != created.Completed || updated.Category != created.Category {
		t.Errorf("expected completed and category unchanged, got %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("expected createdAt unchanged, got %v", updated.CreatedAt)
	}
}

func TestTodo_ToggleTwiceRestores(t *testing.T) {
	repo := repository.NewMemoryDocument(discard)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	sub := subscribeTodos(t, repo, "user-1")
	nextSnapshot(t, sub)

	id, _ := svc.Create(ctx, "user-1", service.CreateTodoInput{Text: "Run 5k", Category: "fitness"})
	original := todosOf(nextSnapshot(t, sub))[0].Completed

	if err := svc.Toggle(ctx, "user-1", id); err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	flipped := todosOf(nextSnapshot(t, sub))[0].Completed
	if flipped == original {
		t.Fatal("expected first toggle to flip completed")
	}

	if err := svc.Toggle(ctx, "user-1", id); err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if got := todosOf(nextSnapshot(t, sub))[0].Completed; got != original {
		t.Errorf("expected completed %v after two toggles, got %v", original, got)
	}
}

func TestTodo_BackToBackTogglesRestore(t *testing.T) {
	repo := repository.NewMemoryDocument(discard)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	list := projection.NewList("todos", projection.MapTodo, discard)
	sub := subscribeTodos(t, repo, "user-1")
	go list.Run(sub)

	id, _ := svc.Create(ctx, "user-1", service.CreateTodoInput{Text: "Stretch", Category: "fitness"})
	waitFor(t, func() bool { return list.Len() == 1 })

	for i := 0; i < 2; i++ {
		if err := svc.Toggle(ctx, "user-1", id); err != nil {
			t.Fatalf("toggle %d: %v", i+1, err)
		}
	}
	if err := svc.Update(ctx, "user-1", id, service.UpdateTodoInput{Text: "Stretch 10 min"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	waitFor(t, func() bool {
		items := list.Items()
		return len(items) == 1 && items[0].Text == "Stretch 10 min"
	})
	if list.Items()[0].Completed {
		t.Error("expected completed false after two toggles")
	}
}

func TestTodo_DeleteMissingLeavesListUnchanged(t *testing.T) {
	repo := repository.NewMemoryDocument(discard)
	svc := service.NewTodoService(repo)
	ctx := context.Background()
	list := projection.NewList("todos", projection.MapTodo, discard)
	sub := subscribeTodos(t, repo, "user-1")
	go list.Run(sub)

	svc.Create(ctx, "user-1", service.CreateTodoInput{Text: "Keep me"})
	waitFor(t, func() bool { return list.Len() == 1 })
	rev := list.Revision()

	if err := svc.Delete(ctx, "user-1", "does-not-exist"); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if list.Len() != 1 || list.Revision() != rev {
		t.Errorf("expected list unchanged, got %d items at revision %d", list.Len(), list.Revision())
	}
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
