package projection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jaekwang-park/todo-notes/internal/repository"
)

// Source is a stream of snapshots, typically a *repository.Subscription.
type Source interface {
	Events() <-chan repository.Snapshot
	Err() error
}

// List is the in-memory projection of one subscription. Every snapshot
// replaces the items wholesale in the order the store delivered them.
type List[T any] struct {
	name   string
	mapFn  Mapper[T]
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	items    []T
	revision uint64
	err      error
	watchers map[chan uint64]struct{}
}

func NewList[T any](name string, mapFn Mapper[T], logger *slog.Logger) *List[T] {
	return &List[T]{
		name:     name,
		mapFn:    mapFn,
		logger:   logger.With("list", name),
		now:      time.Now,
		items:    []T{},
		watchers: make(map[chan uint64]struct{}),
	}
}

// Run applies every snapshot from src until it closes. A close caused by a
// subscription failure puts the list in an error state.
func (l *List[T]) Run(src Source) {
	for snap := range src.Events() {
		l.Apply(snap)
	}
	if err := src.Err(); err != nil {
		l.fail(err)
	}
}

func (l *List[T]) Apply(snap repository.Snapshot) {
	now := l.now()
	items := make([]T, 0, len(snap.Documents))
	for _, doc := range snap.Documents {
		item, defaulted := l.mapFn(doc, now)
		if defaulted {
			l.logger.Debug("timestamp defaulted to now", "id", doc.ID)
		}
		items = append(items, item)
	}

	l.mu.Lock()
	l.items = items
	l.err = nil
	l.revision++
	rev := l.revision
	l.mu.Unlock()

	l.logger.Debug("snapshot applied", "count", len(items), "revision", rev)
	l.publish(rev)
}

func (l *List[T]) fail(err error) {
	l.mu.Lock()
	l.err = err
	l.revision++
	rev := l.revision
	l.mu.Unlock()

	l.logger.Error("live query failed", "error", err)
	l.publish(rev)
}

// Reset empties the list and clears any error.
func (l *List[T]) Reset() {
	l.mu.Lock()
	l.items = []T{}
	l.err = nil
	l.revision++
	rev := l.revision
	l.mu.Unlock()

	l.publish(rev)
}

// Items returns a copy of the current items.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *List[T]) Revision() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.revision
}

func (l *List[T]) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Find returns the first item matching pred.
func (l *List[T]) Find(pred func(T) bool) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, item := range l.items {
		if pred(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Watch delivers the latest revision after each change. Intermediate
// revisions are dropped for slow readers. The channel closes when ctx ends.
func (l *List[T]) Watch(ctx context.Context) <-chan uint64 {
	ch := make(chan uint64, 1)

	l.mu.Lock()
	l.watchers[ch] = struct{}{}
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		delete(l.watchers, ch)
		l.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (l *List[T]) publish(rev uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for ch := range l.watchers {
		select {
		case ch <- rev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- rev:
			default:
			}
		}
	}
}
