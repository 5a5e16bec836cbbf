package models

import (
	"time"

	"github.com/google/uuid"
)

// PlatformUserID owns the wallet that collects settlement fees.
var PlatformUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// User roles.
const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
	RoleSystem = "system"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
