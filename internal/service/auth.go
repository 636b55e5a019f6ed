package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AzenoHI/travel-hi/internal/auth"
	"github.com/AzenoHI/travel-hi/internal/domain"
	"github.com/AzenoHI/travel-hi/pkg/e"
	"github.com/AzenoHI/travel-hi/pkg/validator"
)

type authService struct {
	users  UserStore
	tokens *auth.TokenManager
	logger *slog.Logger
}

func NewAuthService(users UserStore, tokens *auth.TokenManager, logger *slog.Logger) AuthService {
	return &authService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

func (s *authService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	const op = "service.Auth.Register"

	if err := validator.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, e.ErrInvalidInput)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("username", user.Username))
	return user, nil
}

func (s *authService) Login(ctx context.Context, req domain.LoginRequest) (domain.TokenResponse, error) {
	const op = "service.Auth.Login"

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		// Do not leak whether the username exists.
		return domain.TokenResponse{}, fmt.Errorf("%s: %w", op, e.ErrUnauthorized)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return domain.TokenResponse{}, fmt.Errorf("%s: %w", op, e.ErrUnauthorized)
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return domain.TokenResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return domain.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	}, nil
}

// Resolve turns a bearer token into an Identity, including the current
// reputation used by the scoring formula.
func (s *authService) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	const op = "service.Auth.Resolve"

	userID, username, err := s.tokens.Verify(token)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%s: %w", op, e.ErrUnauthorized)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%s: %w", op, e.ErrUnauthorized)
	}

	return domain.Identity{
		UserID:     user.ID,
		Username:   username,
		Reputation: user.Reputation,
	}, nil
}
