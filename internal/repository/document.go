package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Collection names a logical document collection.
type Collection string

const (
	CollectionTodos Collection = "todos"
	CollectionNotes Collection = "notes"
)

func (c Collection) IsValid() bool {
	return c == CollectionTodos || c == CollectionNotes
}

// Direction is the sort direction applied server-side to a subscription.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

func (d Direction) sql() string {
	if d == Ascending {
		return "ASC"
	}
	return "DESC"
}

func (d Direction) mongo() int {
	if d == Ascending {
		return 1
	}
	return -1
}

// Fields is a set of document fields. Values are strings, bools, numbers
// or time.Time.
type Fields map[string]any

// Document is a raw record as delivered by the store.
type Document struct {
	ID      string
	OwnerID string
	Data    map[string]any
}

// Snapshot is the complete matching set of a subscription at one point in
// time, in the order the store returned it.
type Snapshot struct {
	Collection Collection
	Documents  []Document
	ReceivedAt time.Time
}

// Query scopes a subscription to one owner's documents in a collection.
type Query struct {
	Collection Collection
	OwnerID    string
	OrderField string
	Direction  Direction
}

func (q Query) validate() error {
	if !q.Collection.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, q.Collection)
	}
	if q.OwnerID == "" {
		return fmt.Errorf("subscribe %s: owner is required", q.Collection)
	}
	if q.OrderField == "" {
		return fmt.Errorf("subscribe %s: order field is required", q.Collection)
	}
	return nil
}

// DocumentRepository is the remote document store. Mutations are never
// reflected locally; they become visible through the next snapshot of an
// active subscription.
type DocumentRepository interface {
	Subscribe(ctx context.Context, q Query) (*Subscription, error)
	Create(ctx context.Context, collection Collection, ownerID string, fields Fields) (string, error)
	Update(ctx context.Context, collection Collection, ownerID, id string, fields Fields) error
	// Flip negates a boolean field in place; a missing field counts as false.
	Flip(ctx context.Context, collection Collection, ownerID, id, field string) error
	Delete(ctx context.Context, collection Collection, ownerID, id string) error
}

var (
	ErrNotFound          = errors.New("record not found")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNetworkFailure    = errors.New("network failure")
	ErrPermissionDenied  = errors.New("permission denied")
)

// WriteError reports a failed mutation. Kind is ErrNetworkFailure,
// ErrPermissionDenied or nil when the backend failure could not be classified.
type WriteError struct {
	Op         string
	Collection Collection
	Kind       error
	Err        error
}

func (e *WriteError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Collection, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *WriteError) Unwrap() []error {
	if e.Kind != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Err}
}

func newWriteError(op string, c Collection, kind, err error) error {
	return &WriteError{Op: op, Collection: c, Kind: kind, Err: err}
}
