package repository

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaekwang-park/todo-notes/internal/metrics"
)

type fetchFunc func(ctx context.Context) ([]Document, error)

// Subscription is a live query. Every event on Events carries the full
// current result set. The channel closes when the subscription is cancelled
// or fails; Err reports the failure, if any.
type Subscription struct {
	id     string
	query  Query
	logger *slog.Logger

	events  chan Snapshot
	changed chan struct{}
	done    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	release func()

	mu  sync.Mutex
	err error
}

func newSubscription(ctx context.Context, q Query, logger *slog.Logger, release func()) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	if release == nil {
		release = func() {}
	}
	return &Subscription{
		id:      id,
		query:   q,
		logger:  logger.With("subscription_id", id, "collection", string(q.Collection)),
		events:  make(chan Snapshot),
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		release: release,
	}
}

// start runs the fetch loop: one snapshot immediately, then one per change
// signal. Signals arriving while a fetch is in flight collapse into one.
func (s *Subscription) start(fetch fetchFunc) {
	metrics.SubscriptionsActive.WithLabelValues(string(s.query.Collection)).Inc()
	s.logger.Debug("subscription opened", "owner_id", s.query.OwnerID, "order_field", s.query.OrderField)
	go s.run(fetch)
}

func (s *Subscription) run(fetch fetchFunc) {
	defer func() {
		s.release()
		close(s.events)
		close(s.done)
		metrics.SubscriptionsActive.WithLabelValues(string(s.query.Collection)).Dec()
		s.logger.Debug("subscription closed")
	}()

	for {
		docs, err := fetch(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				s.fail(err)
			}
			return
		}

		snap := Snapshot{
			Collection: s.query.Collection,
			Documents:  docs,
			ReceivedAt: time.Now(),
		}
		select {
		case s.events <- snap:
			metrics.SnapshotEvents.WithLabelValues(string(s.query.Collection)).Inc()
		case <-s.ctx.Done():
			return
		}

		select {
		case <-s.changed:
		case <-s.ctx.Done():
			return
		}
	}
}

// notify marks the result set as stale.
func (s *Subscription) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// fail records err as fatal and stops the subscription.
func (s *Subscription) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.logger.Error("subscription failed", "error", err)
	s.cancel()
}

func (s *Subscription) ID() string { return s.id }

func (s *Subscription) Query() Query { return s.query }

func (s *Subscription) Events() <-chan Snapshot { return s.events }

// Done is closed once the subscription has fully shut down.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel stops the subscription and waits for its goroutine to exit.
// Safe to call more than once.
func (s *Subscription) Cancel() {
	s.cancel()
	<-s.done
}
