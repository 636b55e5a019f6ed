package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Reputation   float64   `json:"reputation"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the resolved caller, produced once at the HTTP boundary
// from the bearer token and passed explicitly into service calls.
type Identity struct {
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	Reputation float64   `json:"reputation"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
