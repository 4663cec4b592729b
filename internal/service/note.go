package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/repository"
)

type NoteInput struct {
	Title   string
	Content string
}

func (in NoteInput) normalize() (NoteInput, error) {
	out := NoteInput{
		Title:   strings.TrimSpace(in.Title),
		Content: strings.TrimSpace(in.Content),
	}
	if out.Title == "" {
		return NoteInput{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if out.Content == "" {
		return NoteInput{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	return out, nil
}

type NoteService struct {
	repo repository.DocumentRepository
	now  func() time.Time
}

func NewNoteService(repo repository.DocumentRepository) *NoteService {
	return &NoteService{repo: repo, now: time.Now}
}

func (s *NoteService) Create(ctx context.Context, ownerID string, input NoteInput) (string, error) {
	if err := requireOwner(ownerID); err != nil {
		return "", err
	}
	in, err := input.normalize()
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	id, err := s.repo.Create(ctx, repository.CollectionNotes, ownerID, repository.Fields{
		model.NoteFieldTitle:     in.Title,
		model.NoteFieldContent:   in.Content,
		model.NoteFieldCreatedAt: now,
		model.NoteFieldUpdatedAt: now,
	})
	if err != nil {
		return "", storeError(repository.CollectionNotes, "create", err)
	}
	return id, nil
}

// Update replaces title and content and bumps updatedAt, which moves the
// note to the front of the owner's list.
func (s *NoteService) Update(ctx context.Context, ownerID, noteID string, input NoteInput) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	in, err := input.normalize()
	if err != nil {
		return err
	}

	err = s.repo.Update(ctx, repository.CollectionNotes, ownerID, noteID, repository.Fields{
		model.NoteFieldTitle:     in.Title,
		model.NoteFieldContent:   in.Content,
		model.NoteFieldUpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return storeError(repository.CollectionNotes, "update", err)
	}
	return nil
}

func (s *NoteService) Delete(ctx context.Context, ownerID, noteID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, repository.CollectionNotes, ownerID, noteID); err != nil {
		return storeError(repository.CollectionNotes, "delete", err)
	}
	return nil
}
