package main

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/config"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/repository"
)

// seed-admin promotes the registered account ADMIN_EMAIL to the admin role.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.AdminEmail == "" {
		log.Fatal("ADMIN_EMAIL is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	users := repository.NewUserRepo(pool)
	ok, err := users.SetRoleByEmail(ctx, cfg.AdminEmail, models.RoleAdmin)
	if err != nil {
		log.Fatalf("Failed to promote admin: %v", err)
	}
	if !ok {
		log.Fatalf("No account registered for %s; register it first via /api/v1/auth/register", cfg.AdminEmail)
	}
	log.Printf("✓ %s is now an admin", cfg.AdminEmail)
}
