package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AzenoHI/travel-hi/internal/config"
	"github.com/AzenoHI/travel-hi/internal/domain"
	"github.com/AzenoHI/travel-hi/pkg/e"

	"github.com/google/uuid"
)

type queryService struct {
	store  IncidentStore
	cache  FeedCache
	logger *slog.Logger

	defaultLimit int
	maxLimit     int
}

func NewQueryService(store IncidentStore, cache FeedCache, cfg *config.Config, logger *slog.Logger) ReportQueryService {
	return &queryService{
		store:        store,
		cache:        cache,
		logger:       logger,
		defaultLimit: cfg.Report.DefaultLimit,
		maxLimit:     cfg.Report.MaxLimit,
	}
}

func (s *queryService) Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	return s.store.Get(ctx, id)
}

func (s *queryService) List(ctx context.Context, filter domain.ReportFilter) (domain.ListReportsResponse, error) {
	const op = "service.Query.List"

	if filter.BBox != nil && !filter.BBox.Valid() {
		return domain.ListReportsResponse{}, fmt.Errorf("%s: malformed bbox: %w", op, e.ErrInvalidInput)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return domain.ListReportsResponse{}, fmt.Errorf("%s: unrecognized type %q: %w", op, filter.Type, e.ErrInvalidInput)
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Lim <= 0 {
		filter.Lim = s.defaultLimit
	}
	if filter.Lim > s.maxLimit {
		filter.Lim = s.maxLimit
	}

	if s.cache != nil {
		if reports, total, ok := s.cache.Get(ctx, filter); ok {
			return domain.ListReportsResponse{
				Reports: reports,
				Total:   total,
				Page:    filter.Page,
				Limit:   filter.Lim,
			}, nil
		}
	}

	reports, total, err := s.store.Query(ctx, filter)
	if err != nil {
		return domain.ListReportsResponse{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, filter, reports, total); err != nil {
			s.logger.Warn("feed cache set failed", slog.Any("error", err))
		}
	}

	return domain.ListReportsResponse{
		Reports: reports,
		Total:   total,
		Page:    filter.Page,
		Limit:   filter.Lim,
	}, nil
}
