package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jaekwang-park/todo-notes/internal/repository"
)

// mockDocumentRepo implements repository.DocumentRepository for testing
type mockDocumentRepo struct {
	subscribeFn func(ctx context.Context, q repository.Query) (*repository.Subscription, error)
	createFn    func(ctx context.Context, collection repository.Collection, ownerID string, fields repository.Fields) (string, error)
	updateFn    func(ctx context.Context, collection repository.Collection, ownerID, id string, fields repository.Fields) error
	flipFn      func(ctx context.Context, collection repository.Collection, ownerID, id, field string) error
	deleteFn    func(ctx context.Context, collection repository.Collection, ownerID, id string) error
}

func (m *mockDocumentRepo) Subscribe(ctx context.Context, q repository.Query) (*repository.Subscription, error) {
	return m.subscribeFn(ctx, q)
}
func (m *mockDocumentRepo) Create(ctx context.Context, collection repository.Collection, ownerID string, fields repository.Fields) (string, error) {
	return m.createFn(ctx, collection, ownerID, fields)
}
func (m *mockDocumentRepo) Update(ctx context.Context, collection repository.Collection, ownerID, id string, fields repository.Fields) error {
	return m.updateFn(ctx, collection, ownerID, id, fields)
}
func (m *mockDocumentRepo) Flip(ctx context.Context, collection repository.Collection, ownerID, id, field string) error {
	return m.flipFn(ctx, collection, ownerID, id, field)
}
func (m *mockDocumentRepo) Delete(ctx context.Context, collection repository.Collection, ownerID, id string) error {
	return m.deleteFn(ctx, collection, ownerID, id)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// nextSnapshot waits for the next event on sub.
func nextSnapshot(t *testing.T, sub *repository.Subscription) repository.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Events():
		if !ok {
			t.Fatalf("subscription closed: %v", sub.Err())
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return repository.Snapshot{}
}
