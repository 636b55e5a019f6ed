package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/AzenoHI/travel-hi/internal/config"
	"github.com/AzenoHI/travel-hi/internal/domain"
	"github.com/AzenoHI/travel-hi/internal/observability"
	"github.com/AzenoHI/travel-hi/internal/service"
	"github.com/AzenoHI/travel-hi/pkg/e"

	mock_service "github.com/AzenoHI/travel-hi/internal/service/mocks"
)

func testConfig() *config.Config {
	return &config.Config{
		Moderation: config.ModerationConfig{
			Timeout:        3 * time.Second,
			AbuseThreshold: 0.5,
		},
		Scoring: config.ScoringConfig{
			ReputationWeight: 0.6,
			ConfidenceWeight: 0.4,
		},
		Report: config.ReportConfig{
			MaxDescriptionLen: 500,
			DefaultLimit:      50,
			MaxLimit:          200,
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testIdentity() domain.Identity {
	return domain.Identity{
		UserID:     uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		Username:   "reporter",
		Reputation: 0.5,
	}
}

func validRequest() domain.SubmitReportRequest {
	return domain.SubmitReportRequest{
		Type:        domain.IncidentAccident,
		Description: "two cars collided near the bridge",
		Lat:         50.06,
		Lng:         19.94,
	}
}

func TestIngest_Submit_Accepted(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock_service.NewMockIncidentStore(ctrl)
	classifier := mock_service.NewMockClassifier(ctrl)
	publisher := mock_service.NewMockPublisher(ctrl)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)

	identity := testIdentity()
	req := validRequest()

	verdict := domain.Verdict{
		SeverityEstimate: domain.SeverityHigh,
		AbuseScore:       0.1,
		Confidence:       0.9,
	}

	classifier.EXPECT().
		Classify(gomock.Any(), req.Description, req.Type, domain.Location{Lat: req.Lat, Lng: req.Lng}).
		Return(verdict, nil).
		Times(1)

	var stored *domain.Incident
	store.EXPECT().
		Put(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *domain.Incident) error {
			stored = inc
			return nil
		}).
		Times(1)

	publisher.EXPECT().
		Publish(gomock.Any()).
		Do(func(event domain.IncidentEvent) {
			if event.Type != domain.EventIncidentCreated {
				t.Errorf("unexpected event type: %s", event.Type)
			}
			if event.Incident.Status != domain.StatusAccepted {
				t.Errorf("published incident not accepted: %s", event.Incident.Status)
			}
		}).
		Times(1)

	svc := service.NewIngestService(store, classifier, publisher, nil, nil,
		observability.NewMetricsForTesting(), testConfig(), discardLogger(),
		service.WithClock(clock))

	got, err := svc.Submit(context.Background(), identity, req)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if stored == nil || got != stored {
		t.Fatalf("returned incident is not the persisted one")
	}
	if got.Status != domain.StatusAccepted {
		t.Errorf("status: got=%s want=%s", got.Status, domain.StatusAccepted)
	}
	if got.Severity != domain.SeverityHigh {
		t.Errorf("severity: got=%s want=%s", got.Severity, domain.SeverityHigh)
	}
	wantScore := 0.6*identity.Reputation + 0.4*verdict.Confidence
	if got.Score != wantScore {
		t.Errorf("score: got=%v want=%v", got.Score, wantScore)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("created_at: got=%v want=%v", got.CreatedAt, now)
	}
	if got.ReporterID != identity.UserID {
		t.Errorf("reporter: got=%s want=%s", got.ReporterID, identity.UserID)
	}
	if got.ID == uuid.Nil {
		t.Error("incident id not assigned")
	}
}

func TestIngest_Submit_Unauthorized(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock_service.NewMockIncidentStore(ctrl)
	classifier := mock_service.NewMockClassifier(ctrl)
	publisher := mock_service.NewMockPublisher(ctrl)

	svc := service.NewIngestService(store, classifier, publisher, nil, nil,
		observability.NewMetricsForTesting(), testConfig(), discardLogger())

	_, err := svc.Submit(context.Background(), domain.Identity{}, validRequest())
	if !errors.Is(err, e.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestIngest_Submit_InvalidPayload(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*domain.SubmitReportRequest)
		wantErr error
	}{
		{
			name:    "latitude out of range",
			mutate:  func(r *domain.SubmitReportRequest) { r.Lat = 1000 },
			wantErr: e.ErrInvalidCoordinates,
		},
		{
			name:    "longitude out of range",
			mutate:  func(r *domain.SubmitReportRequest) { r.Lng = -181 },
			wantErr: e.ErrInvalidCoordinates,
		},
		{
			name:    "unrecognized type",
			mutate:  func(r *domain.SubmitReportRequest) { r.Type = "earthquake" },
			wantErr: e.ErrInvalidInput,
		},
		{
			name:    "description too long",
			mutate:  func(r *domain.SubmitReportRequest) { r.Description = strings.Repeat("x", 501) },
			wantErr: e.ErrInvalidInput,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// No EXPECTs: an invalid payload must never reach the
			// classifier, the store or the publisher.
			store := mock_service.NewMockIncidentStore(ctrl)
			classifier := mock_service.NewMockClassifier(ctrl)
			publisher := mock_service.NewMockPublisher(ctrl)

			svc := service.NewIngestService(store, classifier, publisher, nil, nil,
				observability.NewMetricsForTesting(), testConfig(), discardLogger())

			req := validRequest()
			tc.mutate(&req)

			_, err := svc.Submit(context.Background(), testIdentity(), req)
			if !errors.Is(err, e.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestIngest_Submit_DescriptionCapIsConfigurable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock_service.NewMockIncidentStore(ctrl)
	classifier := mock_service.NewMockClassifier(ctrl)
	publisher := mock_service.NewMockPublisher(ctrl)

	cfg := testConfig()
	cfg.Report.MaxDescriptionLen = 600

	req := validRequest()
	req.Description = strings.Repeat("x", 550)

	classifier.EXPECT().
		Classify(gomock.Any(), req.Description, req.Type, gomock.Any()).
		Return(domain.Verdict{Confidence: 0.8}, nil).
		Times(1)
	store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	publisher.EXPECT().Publish(gomock.Any()).Times(1)

	svc := service.NewIngestService(store, classifier, publisher, nil, nil,
		observability.NewMetricsForTesting(), cfg, discardLogger())

	got, err := svc.Submit(context.Background(), testIdentity(), req)
	if err != nil {
		t.Fatalf("raised cap must admit the longer description: %v", err)
	}
	if got.Status != domain.StatusAccepted {
		t.Errorf("status: got=%s want=%s", got.Status, domain.StatusAccepted)
	}
}

func TestIngest_Submit_Rejected(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock_service.NewMockIncidentStore(ctrl)
	classifier := mock_service.NewMockClassifier(ctrl)
	publisher := mock_service.NewMockPublisher(ctrl)

	req := validRequest()
	req.Description = "some abusive text"

	classifier.EXPECT().
		Classify(gomock.Any(), req.Description, req.Type, gomock.Any()).
		Return(domain.Verdict{
			AbuseScore: 0.95,
			Tags:       []string{"profanity"},
			Confidence: 1.0,
		}, nil).
		Times(1)

	// Rejected reports are still persisted for audit.
	store.EXPECT().
		Put(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *domain.Incident) error {
			if inc.Status != domain.StatusRejected {
				t.Errorf("audit record status: got=%s want=%s", inc.Status, domain.StatusRejected)
			}
			return nil
		}).
		Times(1)

	// No Publish EXPECT: rejected reports never reach subscribers.

	svc := service.NewIngestService(store, classifier, publisher, nil, nil,
		observability.NewMetricsForTesting(), testConfig(), discardLogger())

	_, err := svc.Submit(context.Background(), testIdentity(), req)
	if !errors.Is(err, e.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}

	var rejErr *e.RejectionError
	if !errors.As(err, &rejErr) {
		t.Fatalf("expected RejectionError, got %T", err)
	}
	if !strings.Contains(rejErr.Reason, "profanity") {
		t.Errorf("reason should carry the flag tag: %q", rejErr.Reason)
	}
}

func TestIngest_Submit_ScoreAtThresholdAccepted(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock_service.NewMockIncidentStore(ctrl)
	classifier := mock_service.NewMockClassifier(ctrl)
	publisher := mock_service.NewMockPublisher(ctrl)

	// Rejection requires strictly exceeding the threshold.
	classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.Verdict{AbuseScore: 0.5, Confidence: 0.8}, nil).
		Times(1)

	store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	publisher.EXPECT().Publish(gomock.Any()).Times(1)

	svc := service.NewIngestService(store, classifier, publisher, nil, nil,
		observability.NewMetricsForTesting(), testConfig(), discardLogger())

	got, err := svc.Submit(context.Background(), testIdentity(), validRequest())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Status != domain.StatusAccepted {
		t.Errorf("status: got=%s want=%s", got.Status, domain.StatusAccepted)
	}
}

func TestIngest_Submit_ModerationDownFallsBack(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock_service.NewMockIncidentStore(ctrl)
	classifier := mock_service.NewMockClassifier(ctrl)
	publisher := mock_service.NewMockPublisher(ctrl)

	fallback := domain.FallbackVerdict()
	classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(fallback, e.ErrModerationDown).
		Times(1)

	store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	publisher.EXPECT().Publish(gomock.Any()).Times(1)

	svc := service.NewIngestService(store, classifier, publisher, nil, nil,
		observability.NewMetricsForTesting(), testConfig(), discardLogger())

	got, err := svc.Submit(context.Background(), testIdentity(), validRequest())
	if err != nil {
		t.Fatalf("moderation outage must not fail the submission: %v", err)
	}
	if got.Status != domain.StatusAccepted {
		t.Errorf("status: got=%s want=%s", got.Status, domain.StatusAccepted)
	}
	if got.Severity != fallback.SeverityEstimate {
		t.Errorf("severity: got=%s want=%s", got.Severity, fallback.SeverityEstimate)
	}
}

func TestIngest_Submit_SeverityPrecedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		verdict   domain.Verdict
		suggested domain.Severity
		want      domain.Severity
	}{
		{
			name:      "verdict wins over suggestion",
			verdict:   domain.Verdict{SeverityEstimate: domain.SeverityHigh, Confidence: 0.9},
			suggested: domain.SeverityLow,
			want:      domain.SeverityHigh,
		},
		{
			name:      "suggestion used when verdict silent",
			verdict:   domain.Verdict{Confidence: 0.7},
			suggested: domain.SeverityLow,
			want:      domain.SeverityLow,
		},
		{
			name:    "medium default",
			verdict: domain.Verdict{Confidence: 0.7},
			want:    domain.SeverityMedium,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := mock_service.NewMockIncidentStore(ctrl)
			classifier := mock_service.NewMockClassifier(ctrl)
			publisher := mock_service.NewMockPublisher(ctrl)

			classifier.EXPECT().
				Classify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(tc.verdict, nil).
				Times(1)
			store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil).Times(1)
			publisher.EXPECT().Publish(gomock.Any()).Times(1)

			svc := service.NewIngestService(store, classifier, publisher, nil, nil,
				observability.NewMetricsForTesting(), testConfig(), discardLogger())

			req := validRequest()
			req.Severity = tc.suggested

			got, err := svc.Submit(context.Background(), testIdentity(), req)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got.Severity != tc.want {
				t.Errorf("severity: got=%s want=%s", got.Severity, tc.want)
			}
		})
	}
}

func TestIngest_Submit_StoreFailurePropagates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock_service.NewMockIncidentStore(ctrl)
	classifier := mock_service.NewMockClassifier(ctrl)
	publisher := mock_service.NewMockPublisher(ctrl)

	classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.Verdict{Confidence: 0.8}, nil).
		Times(1)

	wantErr := errors.New("pool closed")
	store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(wantErr).Times(1)

	// No Publish EXPECT: nothing is announced if persistence failed.

	svc := service.NewIngestService(store, classifier, publisher, nil, nil,
		observability.NewMetricsForTesting(), testConfig(), discardLogger())

	_, err := svc.Submit(context.Background(), testIdentity(), validRequest())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestIngest_Submit_SideEffectsAfterAccept(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock_service.NewMockIncidentStore(ctrl)
	classifier := mock_service.NewMockClassifier(ctrl)
	publisher := mock_service.NewMockPublisher(ctrl)
	webhookQ := mock_service.NewMockWebhookQueue(ctrl)
	cache := mock_service.NewMockFeedCache(ctrl)

	classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.Verdict{SeverityEstimate: domain.SeverityLow, Confidence: 0.6}, nil).
		Times(1)
	store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	publisher.EXPECT().Publish(gomock.Any()).Times(1)

	webhookQ.EXPECT().
		Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p domain.WebhookPayload) error {
			if p.IncidentID == uuid.Nil {
				t.Error("webhook payload missing incident id")
			}
			if p.Severity != domain.SeverityLow {
				t.Errorf("webhook severity: got=%s want=%s", p.Severity, domain.SeverityLow)
			}
			return nil
		}).
		Times(1)
	cache.EXPECT().Invalidate(gomock.Any()).Return(nil).Times(1)

	svc := service.NewIngestService(store, classifier, publisher, webhookQ, cache,
		observability.NewMetricsForTesting(), testConfig(), discardLogger())

	if _, err := svc.Submit(context.Background(), testIdentity(), validRequest()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
