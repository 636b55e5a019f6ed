package postgres

import (
	"context"

	"github.com/AzenoHI/travel-hi/internal/domain"

	"github.com/google/uuid"
)

type IncidentRepository interface {
	// Put inserts or updates by id, last write wins.
	Put(ctx context.Context, incident *domain.Incident) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	// Query returns accepted incidents matching the filter,
	// ordered by created_at descending.
	Query(ctx context.Context, filter domain.ReportFilter) ([]domain.Incident, int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
