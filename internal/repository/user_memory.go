package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaekwang-park/todo-notes/internal/model"
)

// MemoryUserRepository keeps users in process memory.
type MemoryUserRepository struct {
	mu    sync.Mutex
	bySub map[string]model.User
}

func NewMemoryUser() *MemoryUserRepository {
	return &MemoryUserRepository{bySub: make(map[string]model.User)}
}

// GetOrCreate upserts by Cognito subject. An empty name keeps the stored one.
func (r *MemoryUserRepository) GetOrCreate(ctx context.Context, cognitoSub, email, name string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	u, ok := r.bySub[cognitoSub]
	if !ok {
		u = model.User{ID: uuid.NewString(), CognitoSub: cognitoSub, CreatedAt: now}
	}
	u.Email = email
	if name != "" {
		u.Name = name
	}
	u.UpdatedAt = now
	r.bySub[cognitoSub] = u
	return u, nil
}

func (r *MemoryUserRepository) GetByCognitoSub(ctx context.Context, cognitoSub string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.bySub[cognitoSub]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return u, nil
}

var _ UserRepository = (*MemoryUserRepository)(nil)
