package service

import (
	"errors"
	"fmt"

	"github.com/jaekwang-park/todo-notes/internal/metrics"
	"github.com/jaekwang-park/todo-notes/internal/repository"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// storeError normalizes a repository failure and records it.
func storeError(collection repository.Collection, op string, err error) error {
	kind := "unknown"
	switch {
	case errors.Is(err, repository.ErrNotFound):
		kind = "not_found"
	case errors.Is(err, repository.ErrNetworkFailure):
		kind = "network"
	case errors.Is(err, repository.ErrPermissionDenied):
		kind = "permission"
	}
	metrics.MutationFailures.WithLabelValues(string(collection), op, kind).Inc()

	if kind == "not_found" {
		return ErrNotFound
	}
	return fmt.Errorf("failed to %s %s: %w", op, singular(collection), err)
}

func singular(c repository.Collection) string {
	switch c {
	case repository.CollectionTodos:
		return "todo"
	case repository.CollectionNotes:
		return "note"
	}
	return string(c)
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	return nil
}
