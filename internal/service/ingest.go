package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AzenoHI/travel-hi/internal/config"
	"github.com/AzenoHI/travel-hi/internal/domain"
	"github.com/AzenoHI/travel-hi/internal/observability"
	"github.com/AzenoHI/travel-hi/pkg/e"
	"github.com/AzenoHI/travel-hi/pkg/validator"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type ingestService struct {
	store      IncidentStore
	classifier Classifier
	publisher  Publisher
	webhookQ   WebhookQueue
	cache      FeedCache
	metrics    *observability.Metrics
	logger     *slog.Logger
	clock      clockwork.Clock

	abuseThreshold   float64
	reputationWeight float64
	confidenceWeight float64
	maxDescription   int
}

type IngestOption func(*ingestService)

// WithClock swaps the time source, so tests can freeze acceptance
// timestamps.
func WithClock(c clockwork.Clock) IngestOption {
	return func(s *ingestService) {
		s.clock = c
	}
}

func NewIngestService(
	store IncidentStore,
	classifier Classifier,
	publisher Publisher,
	webhookQ WebhookQueue,
	cache FeedCache,
	metrics *observability.Metrics,
	cfg *config.Config,
	logger *slog.Logger,
	opts ...IngestOption,
) ReportIngestService {
	s := &ingestService{
		store:            store,
		classifier:       classifier,
		publisher:        publisher,
		webhookQ:         webhookQ,
		cache:            cache,
		metrics:          metrics,
		logger:           logger,
		clock:            clockwork.NewRealClock(),
		abuseThreshold:   cfg.Moderation.AbuseThreshold,
		reputationWeight: cfg.Scoring.ReputationWeight,
		confidenceWeight: cfg.Scoring.ConfidenceWeight,
		maxDescription:   cfg.Report.MaxDescriptionLen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs the full ingestion pipeline: structural validation,
// moderation with timeout-bounded fallback, acceptance policy, persistence
// and live publication. Every call yields exactly one outcome: the accepted
// incident, a rejection error with the policy reason, an invalid-payload
// error, or unauthorized.
func (s *ingestService) Submit(ctx context.Context, identity domain.Identity, req domain.SubmitReportRequest) (*domain.Incident, error) {
	const op = "service.Ingest.Submit"

	if identity.UserID == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, e.ErrUnauthorized)
	}

	if err := s.validate(req); err != nil {
		s.metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	verdict := s.classify(ctx, req)

	incident := &domain.Incident{
		ID:          uuid.New(),
		Type:        req.Type,
		Description: req.Description,
		Lat:         req.Lat,
		Lng:         req.Lng,
		Status:      domain.StatusPending,
		ReporterID:  identity.UserID,
	}

	if verdict.AbuseScore > s.abuseThreshold {
		return nil, s.reject(ctx, incident, verdict)
	}

	incident.Status = domain.StatusAccepted
	incident.Severity = s.severity(verdict, req.Severity)
	incident.Score = s.reputationWeight*identity.Reputation + s.confidenceWeight*verdict.Confidence
	incident.CreatedAt = s.clock.Now().UTC()

	if err := s.store.Put(ctx, incident); err != nil {
		return nil, err
	}
	s.metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()

	s.logger.Info("report accepted",
		slog.String("id", incident.ID.String()),
		slog.String("type", string(incident.Type)),
		slog.String("severity", string(incident.Severity)),
		slog.Float64("score", incident.Score),
		slog.String("reporter", identity.UserID.String()),
	)

	s.afterAccept(ctx, incident)

	return incident, nil
}

func (s *ingestService) validate(req domain.SubmitReportRequest) error {
	const op = "service.Ingest.validate"

	if !req.Type.Valid() {
		return fmt.Errorf("%s: unrecognized type %q: %w", op, req.Type, e.ErrInvalidInput)
	}
	if len(req.Description) > s.maxDescription {
		return fmt.Errorf("%s: description exceeds %d characters: %w", op, s.maxDescription, e.ErrInvalidInput)
	}
	loc := domain.Location{Lat: req.Lat, Lng: req.Lng}
	if !loc.Valid() {
		return fmt.Errorf("%s: %w: %w", op, e.ErrInvalidCoordinates, e.ErrInvalidInput)
	}
	if err := validator.ValidateStruct(req); err != nil {
		return fmt.Errorf("%s: %v: %w", op, err, e.ErrInvalidInput)
	}
	return nil
}

// classify consults the moderation collaborator. Ingestion availability
// never depends on the collaborator: failures and timeouts fall back to
// the conservative rule verdict the classifier returned alongside the
// error.
func (s *ingestService) classify(ctx context.Context, req domain.SubmitReportRequest) domain.Verdict {
	loc := domain.Location{Lat: req.Lat, Lng: req.Lng}
	verdict, err := s.classifier.Classify(ctx, req.Description, req.Type, loc)
	if err != nil {
		if errors.Is(err, e.ErrModerationDown) {
			s.metrics.ModerationFallbacks.Inc()
			s.logger.Warn("moderation unavailable, rule fallback applied",
				slog.String("type", string(req.Type)),
			)
			return verdict
		}
		s.logger.Error("classifier failed, using default verdict", slog.Any("error", err))
		return domain.FallbackVerdict()
	}
	return verdict
}

func (s *ingestService) reject(ctx context.Context, incident *domain.Incident, verdict domain.Verdict) error {
	incident.Status = domain.StatusRejected
	incident.Severity = s.severity(verdict, "")
	incident.CreatedAt = s.clock.Now().UTC()

	// Rejected reports are retained for audit. They are invisible to
	// queries and never published.
	if err := s.store.Put(ctx, incident); err != nil {
		s.logger.Error("persisting rejected report failed", slog.Any("error", err))
	}
	s.metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()

	reason := "flagged as abusive"
	if len(verdict.Tags) > 0 {
		reason = fmt.Sprintf("flagged as abusive (%s)", verdict.Tags[0])
	}
	s.logger.Info("report rejected",
		slog.String("id", incident.ID.String()),
		slog.Float64("abuse_score", verdict.AbuseScore),
		slog.String("reason", reason),
	)

	return e.Rejected(reason)
}

func (s *ingestService) severity(verdict domain.Verdict, suggested domain.Severity) domain.Severity {
	if verdict.SeverityEstimate.Valid() {
		return verdict.SeverityEstimate
	}
	if suggested.Valid() {
		return suggested
	}
	return domain.SeverityMedium
}

// afterAccept runs the fire-and-forget side effects. None of them can fail
// the submission: the incident is already committed.
func (s *ingestService) afterAccept(ctx context.Context, incident *domain.Incident) {
	s.publisher.Publish(domain.IncidentEvent{
		Type:     domain.EventIncidentCreated,
		Incident: *incident,
	})

	if s.webhookQ != nil {
		payload := domain.WebhookPayload{
			IncidentID: incident.ID,
			Type:       incident.Type,
			Severity:   incident.Severity,
			Lat:        incident.Lat,
			Lng:        incident.Lng,
			AcceptedAt: incident.CreatedAt,
		}
		if err := s.webhookQ.Enqueue(ctx, payload); err != nil {
			s.logger.Error("enqueue webhook failed", slog.Any("error", err))
		}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("feed cache invalidation failed", slog.Any("error", err))
		}
	}
}
