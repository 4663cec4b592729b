package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jaekwang-park/todo-notes/internal/model"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUser(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// GetOrCreate upserts by Cognito subject. An empty name keeps the stored one.
func (r *PostgresUserRepository) GetOrCreate(ctx context.Context, cognitoSub, email, name string) (model.User, error) {
	query := `
		INSERT INTO users (cognito_sub, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (cognito_sub) DO UPDATE SET
			email = EXCLUDED.email,
			name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			updated_at = now()
		RETURNING id, cognito_sub, email, name, created_at, updated_at`

	row := r.db.QueryRowContext(ctx, query, cognitoSub, email, name)
	return scanUser(row)
}

func (r *PostgresUserRepository) GetByCognitoSub(ctx context.Context, cognitoSub string) (model.User, error) {
	query := `
		SELECT id, cognito_sub, email, name, created_at, updated_at
		FROM users
		WHERE cognito_sub = $1`

	row := r.db.QueryRowContext(ctx, query, cognitoSub)
	return scanUser(row)
}

func scanUser(row scannable) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.CognitoSub, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
