package repository

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryUser_GetOrCreate(t *testing.T) {
	r := NewMemoryUser()
	ctx := context.Background()

	if _, err := r.GetByCognitoSub(ctx, "sub-1"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	created, err := r.GetOrCreate(ctx, "sub-1", "jane@example.com", "Jane")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" || created.Name != "Jane" {
		t.Fatalf("unexpected user: %+v", created)
	}

	again, err := r.GetOrCreate(ctx, "sub-1", "jane@new.example.com", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ID != created.ID {
		t.Errorf("expected stable id %s, got %s", created.ID, again.ID)
	}
	if again.Name != "Jane" {
		t.Errorf("expected empty name to keep Jane, got %q", again.Name)
	}
	if again.Email != "jane@new.example.com" {
		t.Errorf("expected email to be refreshed, got %q", again.Email)
	}

	found, err := r.GetByCognitoSub(ctx, "sub-1")
	if err != nil || found.ID != created.ID {
		t.Errorf("expected lookup to find %s, got %+v (%v)", created.ID, found, err)
	}
}
