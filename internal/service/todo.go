package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/repository"
)

type CreateTodoInput struct {
	Text        string
	Description string
	Category    string
}

type UpdateTodoInput struct {
	Text        string
	Description string
}

// TodoService writes todos. Results are never returned directly; they
// arrive through the owner's todos subscription.
type TodoService struct {
	repo repository.DocumentRepository
	now  func() time.Time
}

func NewTodoService(repo repository.DocumentRepository) *TodoService {
	return &TodoService{repo: repo, now: time.Now}
}

func (s *TodoService) Create(ctx context.Context, ownerID string, input CreateTodoInput) (string, error) {
	if err := requireOwner(ownerID); err != nil {
		return "", err
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return "", fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	category, err := model.ParseCategory(input.Category)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	id, err := s.repo.Create(ctx, repository.CollectionTodos, ownerID, repository.Fields{
		model.TodoFieldText:        text,
		model.TodoFieldDescription: strings.TrimSpace(input.Description),
		model.TodoFieldCompleted:   false,
		model.TodoFieldCategory:    string(category),
		model.TodoFieldCreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return "", storeError(repository.CollectionTodos, "create", err)
	}
	return id, nil
}

// Toggle negates the stored completed flag in a single store write.
func (s *TodoService) Toggle(ctx context.Context, ownerID, todoID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	err := s.repo.Flip(ctx, repository.CollectionTodos, ownerID, todoID, model.TodoFieldCompleted)
	if err != nil {
		return storeError(repository.CollectionTodos, "toggle", err)
	}
	return nil
}

// Update replaces text and description. Completed and category are left as is.
func (s *TodoService) Update(ctx context.Context, ownerID, todoID string, input UpdateTodoInput) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return fmt.Errorf("%w: text cannot be empty", ErrInvalidInput)
	}

	err := s.repo.Update(ctx, repository.CollectionTodos, ownerID, todoID, repository.Fields{
		model.TodoFieldText:        text,
		model.TodoFieldDescription: strings.TrimSpace(input.Description),
	})
	if err != nil {
		return storeError(repository.CollectionTodos, "update", err)
	}
	return nil
}

func (s *TodoService) Delete(ctx context.Context, ownerID, todoID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, repository.CollectionTodos, ownerID, todoID); err != nil {
		return storeError(repository.CollectionTodos, "delete", err)
	}
	return nil
}
