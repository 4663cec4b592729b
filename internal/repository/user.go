package repository

import (
	"context"
	"errors"

	"github.com/jaekwang-park/todo-notes/internal/model"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	GetOrCreate(ctx context.Context, cognitoSub, email, name string) (model.User, error)
	GetByCognitoSub(ctx context.Context, cognitoSub string) (model.User, error)
}
