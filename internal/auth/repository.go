package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// WalletCreator opens a user's wallet inside the registration transaction.
type WalletCreator interface {
	CreateTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error
}

type Repository struct {
	pool    *pgxpool.Pool
	wallets WalletCreator
}

func NewRepository(pool *pgxpool.Pool, wallets WalletCreator) *Repository {
	return &Repository{pool: pool, wallets: wallets}
}

// Create inserts a player and its zero-balance wallet in one transaction.
func (r *Repository) Create(ctx context.Context, email, passwordHash, displayName string) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u := &models.User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Role:         models.RolePlayer,
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.PasswordHash, u.DisplayName, u.Role)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if err := r.wallets.CreateTx(ctx, tx, u.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail returns the user with its password hash, or nil if not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, password_hash, role, created_at, updated_at
		FROM users WHERE email = $1
	`, email)
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
