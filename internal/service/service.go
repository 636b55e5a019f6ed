package service

import (
	"context"

	"github.com/AzenoHI/travel-hi/internal/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go

// ReportIngestService admits new incident submissions.
type ReportIngestService interface {
	Submit(ctx context.Context, identity domain.Identity, req domain.SubmitReportRequest) (*domain.Incident, error)
}

// ReportQueryService exposes the incident store to readers.
type ReportQueryService interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	List(ctx context.Context, filter domain.ReportFilter) (domain.ListReportsResponse, error)
}

// AuthService is the identity collaborator: registration, login, and
// bearer-token resolution at the request boundary.
type AuthService interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req domain.LoginRequest) (domain.TokenResponse, error)
	Resolve(ctx context.Context, token string) (domain.Identity, error)
}

// IncidentStore is the authoritative incident record.
type IncidentStore interface {
	Put(ctx context.Context, incident *domain.Incident) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	Query(ctx context.Context, filter domain.ReportFilter) ([]domain.Incident, int64, error)
}

// Publisher pushes accepted incidents to live subscribers. Implementations
// must not block the caller.
type Publisher interface {
	Publish(event domain.IncidentEvent)
}

type WebhookQueue interface {
	Enqueue(ctx context.Context, payload domain.WebhookPayload) error
}

// FeedCache caches list-query results.
type FeedCache interface {
	Get(ctx context.Context, filter domain.ReportFilter) ([]domain.Incident, int64, bool)
	Set(ctx context.Context, filter domain.ReportFilter, reports []domain.Incident, total int64) error
	Invalidate(ctx context.Context) error
}

type Classifier interface {
	Classify(ctx context.Context, description string, typ domain.IncidentType, loc domain.Location) (domain.Verdict, error)
}

type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type Service struct {
	Ingest ReportIngestService
	Query  ReportQueryService
	Auth   AuthService
}

func NewService(ingest ReportIngestService, query ReportQueryService, auth AuthService) *Service {
	return &Service{
		Ingest: ingest,
		Query:  query,
		Auth:   auth,
	}
}
