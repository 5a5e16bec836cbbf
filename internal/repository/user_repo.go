package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, password_hash, role, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetRole returns the user's role.
func (r *UserRepo) GetRole(ctx context.Context, id uuid.UUID) (string, error) {
	var role string
	err := r.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, id).Scan(&role)
	return role, err
}

// SetRoleByEmail changes a user's role and reports whether a row matched.
func (r *UserRepo) SetRoleByEmail(ctx context.Context, email, role string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET role = $2, updated_at = now() WHERE email = $1
	`, email, role)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *UserRepo) UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET display_name = $2, updated_at = now() WHERE id = $1
	`, id, displayName)
	return err
}
