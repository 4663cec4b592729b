// Package workspace keeps the live todo and note lists of the signed-in
// principal. It is the session's Binder.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/projection"
	"github.com/jaekwang-park/todo-notes/internal/repository"
)

type Workspace struct {
	repo   repository.DocumentRepository
	logger *slog.Logger
	base   context.Context

	todos *projection.List[model.Todo]
	notes *projection.List[model.Note]

	mu        sync.Mutex
	principal model.Principal
	bound     bool
	subs      []*repository.Subscription
	running   sync.WaitGroup
}

func New(repo repository.DocumentRepository, logger *slog.Logger) *Workspace {
	return &Workspace{
		repo:   repo,
		logger: logger,
		base:   context.Background(),
		todos:  projection.NewList("todos", projection.MapTodo, logger),
		notes:  projection.NewList("notes", projection.MapNote, logger),
	}
}

func (w *Workspace) Todos() *projection.List[model.Todo] { return w.todos }

func (w *Workspace) Notes() *projection.List[model.Note] { return w.notes }

// Principal returns the principal the lists are scoped to.
func (w *Workspace) Principal() (model.Principal, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.principal, w.bound
}

// Todo returns the todo with id as last observed.
func (w *Workspace) Todo(id string) (model.Todo, bool) {
	return w.todos.Find(func(t model.Todo) bool { return t.ID == id })
}

// Bind opens the todos and notes subscriptions for p, replacing any
// previous binding. Subscriptions outlive ctx; only Unbind ends them.
func (w *Workspace) Bind(ctx context.Context, p model.Principal) error {
	if p.ID == "" {
		return fmt.Errorf("bind: principal id is required")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.unbindLocked()

	queries := []repository.Query{
		{Collection: repository.CollectionTodos, OwnerID: p.ID, OrderField: model.TodoFieldCreatedAt, Direction: repository.Descending},
		{Collection: repository.CollectionNotes, OwnerID: p.ID, OrderField: model.NoteFieldUpdatedAt, Direction: repository.Descending},
	}
	subs := make([]*repository.Subscription, len(queries))

	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sub, err := w.repo.Subscribe(w.base, q)
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", q.Collection, err)
			}
			subs[i] = sub
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, sub := range subs {
			if sub != nil {
				sub.Cancel()
			}
		}
		w.logger.Error("workspace bind failed", "user_id", p.ID, "error", err)
		return err
	}

	w.subs = subs
	w.principal = p
	w.bound = true

	w.running.Add(2)
	go func() {
		defer w.running.Done()
		w.todos.Run(subs[0])
	}()
	go func() {
		defer w.running.Done()
		w.notes.Run(subs[1])
	}()

	w.logger.Info("workspace bound", "user_id", p.ID)
	return nil
}

// Unbind cancels the subscriptions and empties both lists before returning.
func (w *Workspace) Unbind() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unbindLocked()
}

func (w *Workspace) unbindLocked() {
	if !w.bound {
		return
	}
	for _, sub := range w.subs {
		sub.Cancel()
	}
	w.running.Wait()

	w.todos.Reset()
	w.notes.Reset()

	w.logger.Info("workspace unbound", "user_id", w.principal.ID)
	w.subs = nil
	w.principal = model.Principal{}
	w.bound = false
}
