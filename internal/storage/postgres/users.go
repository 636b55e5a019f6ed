package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AzenoHI/travel-hi/internal/domain"
	"github.com/AzenoHI/travel-hi/pkg/e"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewUserRepo(pool *pgxpool.Pool, logger *slog.Logger) *UserRepo {
	return &UserRepo{pool: pool, logger: logger}
}

func (p *UserRepo) Create(ctx context.Context, user *domain.User) error {
	const op = "postgres.User.Create"

	const query = `
		INSERT INTO users (id, username, email, password_hash, reputation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := p.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Reputation,
		user.CreatedAt,
	)
	if err != nil {
		wrapped := e.WrapError(ctx, op, err)
		if errors.Is(wrapped, e.ErrUniqueViolation) {
			return fmt.Errorf("%s: %w", op, e.ErrConflict)
		}
		p.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err))
		return wrapped
	}

	return nil
}

func (p *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const op = "postgres.User.GetByUsername"

	const query = `
		SELECT id, username, email, password_hash, reputation, created_at
		FROM users
		WHERE username = $1
	`

	return p.getOne(ctx, op, query, username)
}

func (p *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "postgres.User.GetByID"

	const query = `
		SELECT id, username, email, password_hash, reputation, created_at
		FROM users
		WHERE id = $1
	`

	return p.getOne(ctx, op, query, id)
}

func (p *UserRepo) getOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := p.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Reputation,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
		}
		p.logger.Error("db queryrow scan failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	return &u, nil
}
