package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDocumentRepository keeps documents in process. It backs local
// development without a database and the package tests of callers.
type MemoryDocumentRepository struct {
	logger *slog.Logger
	hub    *changeHub

	mu   sync.RWMutex
	docs map[Collection][]Document
}

func NewMemoryDocument(logger *slog.Logger) *MemoryDocumentRepository {
	return &MemoryDocumentRepository{
		logger: logger,
		hub:    newChangeHub(),
		docs:   make(map[Collection][]Document),
	}
}

func (r *MemoryDocumentRepository) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	var sub *Subscription
	sub = newSubscription(ctx, q, r.logger, func() { r.hub.remove(sub) })
	r.hub.add(sub)
	sub.start(func(ctx context.Context) ([]Document, error) {
		return r.query(q), nil
	})
	return sub, nil
}

func (r *MemoryDocumentRepository) query(q Query) []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Document{}
	for _, d := range r.docs[q.Collection] {
		if d.OwnerID == q.OwnerID {
			out = append(out, cloneDocument(d))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return orderBefore(out[i].Data[q.OrderField], out[j].Data[q.OrderField], q.Direction)
	})
	return out
}

func (r *MemoryDocumentRepository) Create(ctx context.Context, collection Collection, ownerID string, fields Fields) (string, error) {
	if !collection.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	id := uuid.NewString()
	data := make(map[string]any, len(fields))
	for k, v := range fields {
		data[k] = v
	}

	r.mu.Lock()
	r.docs[collection] = append(r.docs[collection], Document{ID: id, OwnerID: ownerID, Data: data})
	r.mu.Unlock()

	r.hub.publish(collection, ownerID)
	return id, nil
}

func (r *MemoryDocumentRepository) Update(ctx context.Context, collection Collection, ownerID, id string, fields Fields) error {
	if !collection.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	r.mu.Lock()
	i := r.indexLocked(collection, ownerID, id)
	if i < 0 {
		r.mu.Unlock()
		return ErrNotFound
	}
	data := r.docs[collection][i].Data
	for k, v := range fields {
		data[k] = v
	}
	r.mu.Unlock()

	r.hub.publish(collection, ownerID)
	return nil
}

func (r *MemoryDocumentRepository) Flip(ctx context.Context, collection Collection, ownerID, id, field string) error {
	if !collection.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	r.mu.Lock()
	i := r.indexLocked(collection, ownerID, id)
	if i < 0 {
		r.mu.Unlock()
		return ErrNotFound
	}
	data := r.docs[collection][i].Data
	current, _ := data[field].(bool)
	data[field] = !current
	r.mu.Unlock()

	r.hub.publish(collection, ownerID)
	return nil
}

func (r *MemoryDocumentRepository) Delete(ctx context.Context, collection Collection, ownerID, id string) error {
	if !collection.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	r.mu.Lock()
	i := r.indexLocked(collection, ownerID, id)
	if i < 0 {
		r.mu.Unlock()
		return ErrNotFound
	}
	docs := r.docs[collection]
	r.docs[collection] = append(docs[:i:i], docs[i+1:]...)
	r.mu.Unlock()

	r.hub.publish(collection, ownerID)
	return nil
}

func (r *MemoryDocumentRepository) indexLocked(collection Collection, ownerID, id string) int {
	for i, d := range r.docs[collection] {
		if d.ID == id && d.OwnerID == ownerID {
			return i
		}
	}
	return -1
}

func cloneDocument(d Document) Document {
	data := make(map[string]any, len(d.Data))
	for k, v := range d.Data {
		data[k] = v
	}
	return Document{ID: d.ID, OwnerID: d.OwnerID, Data: data}
}

// orderBefore sorts by time or string value; missing values go last in
// either direction.
func orderBefore(a, b any, dir Direction) bool {
	if a == nil || b == nil {
		return a != nil && b == nil
	}
	var less, greater bool
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return false
		}
		less, greater = av.Before(bv), av.After(bv)
	case string:
		bv, ok := b.(string)
		if !ok {
			return false
		}
		less, greater = av < bv, av > bv
	default:
		return false
	}
	if dir == Ascending {
		return less
	}
	return greater
}

var _ DocumentRepository = (*MemoryDocumentRepository)(nil)
