package reports_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"

	"github.com/AzenoHI/travel-hi/internal/api/handlers/http/reports"
	mock_reports "github.com/AzenoHI/travel-hi/internal/api/handlers/http/reports/mocks"
	"github.com/AzenoHI/travel-hi/internal/domain"
	"github.com/AzenoHI/travel-hi/internal/middleware"
	"github.com/AzenoHI/travel-hi/pkg/e"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelError}))
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json response: %v, body=%s", err, rr.Body.String())
	}
	return out
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	identity := domain.Identity{
		UserID:     uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		Username:   "reporter",
		Reputation: 0.5,
	}
	return req.WithContext(middleware.ContextWithIdentity(req.Context(), identity))
}

func TestSubmitReport_Created(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ingest := mock_reports.NewMockIngestor(ctrl)
	h := reports.NewHandler(newTestLogger(), ingest, nil)

	reqBody := `{"type":"accident","description":"two cars collided","lat":50.06,"lng":19.94}`
	req := authedRequest(http.MethodPost, "/api/reports", reqBody)
	rr := httptest.NewRecorder()

	want := &domain.Incident{
		ID:       uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Type:     domain.IncidentAccident,
		Severity: domain.SeverityMedium,
		Lat:      50.06,
		Lng:      19.94,
		Status:   domain.StatusAccepted,
	}

	ingest.EXPECT().
		Submit(gomock.Any(), gomock.Any(), domain.SubmitReportRequest{
			Type:        domain.IncidentAccident,
			Description: "two cars collided",
			Lat:         50.06,
			Lng:         19.94,
		}).
		Return(want, nil).
		Times(1)

	h.SubmitReport(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected %d got %d body=%s", http.StatusCreated, rr.Code, rr.Body.String())
	}

	got := decodeJSON[domain.Incident](t, rr)
	if got.ID != want.ID || got.Status != want.Status {
		t.Fatalf("unexpected response: got=%+v want=%+v", got, want)
	}
}

func TestSubmitReport_NoIdentity_401(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ingest := mock_reports.NewMockIngestor(ctrl)
	h := reports.NewHandler(newTestLogger(), ingest, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/reports",
		bytes.NewBufferString(`{"type":"accident","lat":50.06,"lng":19.94}`))
	rr := httptest.NewRecorder()

	h.SubmitReport(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected %d got %d body=%s", http.StatusUnauthorized, rr.Code, rr.Body.String())
	}
}

func TestSubmitReport_InvalidJSON_400(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"truncated", `{"type":"accident"`},
		{"unknown field", `{"type":"accident","lat":50.06,"lng":19.94,"color":"red"}`},
		{"trailing garbage", `{"type":"accident","lat":50.06,"lng":19.94}{"again":true}`},
		{"not json", `type=accident`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ingest := mock_reports.NewMockIngestor(ctrl)
			h := reports.NewHandler(newTestLogger(), ingest, nil)

			req := authedRequest(http.MethodPost, "/api/reports", tc.body)
			rr := httptest.NewRecorder()

			h.SubmitReport(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected %d got %d body=%s", http.StatusBadRequest, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSubmitReport_InvalidPayload_400(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ingest := mock_reports.NewMockIngestor(ctrl)
	h := reports.NewHandler(newTestLogger(), ingest, nil)

	ingest.EXPECT().
		Submit(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, e.Wrap("validate", e.ErrInvalidInput)).
		Times(1)

	req := authedRequest(http.MethodPost, "/api/reports",
		`{"type":"accident","lat":1000,"lng":19.94}`)
	rr := httptest.NewRecorder()

	h.SubmitReport(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d body=%s", http.StatusBadRequest, rr.Code, rr.Body.String())
	}
}

func TestSubmitReport_Rejected_422(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ingest := mock_reports.NewMockIngestor(ctrl)
	h := reports.NewHandler(newTestLogger(), ingest, nil)

	ingest.EXPECT().
		Submit(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, e.Rejected("flagged as abusive (profanity)")).
		Times(1)

	req := authedRequest(http.MethodPost, "/api/reports",
		`{"type":"other","description":"abusive text","lat":50.06,"lng":19.94}`)
	rr := httptest.NewRecorder()

	h.SubmitReport(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected %d got %d body=%s", http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	}

	got := decodeJSON[map[string]string](t, rr)
	if got["error"] != "rejected" {
		t.Errorf("error field: got=%q want=%q", got["error"], "rejected")
	}
	if got["reason"] != "flagged as abusive (profanity)" {
		t.Errorf("reason field: got=%q", got["reason"])
	}
}

func TestGetReport_OK(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	query := mock_reports.NewMockQuerier(ctrl)
	h := reports.NewHandler(newTestLogger(), nil, query)

	id := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	want := &domain.Incident{ID: id, Type: domain.IncidentClosure, Status: domain.StatusAccepted}

	query.EXPECT().Get(gomock.Any(), id).Return(want, nil).Times(1)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/"+id.String(), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()

	h.GetReport(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}
	got := decodeJSON[domain.Incident](t, rr)
	if got.ID != id {
		t.Fatalf("unexpected incident: got=%+v", got)
	}
}

func TestGetReport_BadID_400(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	query := mock_reports.NewMockQuerier(ctrl)
	h := reports.NewHandler(newTestLogger(), nil, query)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/not-a-uuid", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()

	h.GetReport(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d body=%s", http.StatusBadRequest, rr.Code, rr.Body.String())
	}
}

func TestGetReport_NotFound_404(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	query := mock_reports.NewMockQuerier(ctrl)
	h := reports.NewHandler(newTestLogger(), nil, query)

	id := uuid.New()
	query.EXPECT().Get(gomock.Any(), id).Return(nil, e.ErrNotFound).Times(1)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/"+id.String(), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()

	h.GetReport(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected %d got %d body=%s", http.StatusNotFound, rr.Code, rr.Body.String())
	}
}

func TestListReports_ParsesFilter(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	query := mock_reports.NewMockQuerier(ctrl)
	h := reports.NewHandler(newTestLogger(), nil, query)

	query.EXPECT().
		List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f domain.ReportFilter) (domain.ListReportsResponse, error) {
			if f.BBox == nil {
				t.Fatal("bbox not parsed")
			}
			want := domain.BoundingBox{MinLat: 49.9, MinLng: 19.8, MaxLat: 50.2, MaxLng: 20.1}
			if *f.BBox != want {
				t.Errorf("bbox: got=%+v want=%+v", *f.BBox, want)
			}
			if f.Type != domain.IncidentAccident {
				t.Errorf("type: got=%s want=%s", f.Type, domain.IncidentAccident)
			}
			if f.Page != 2 || f.Lim != 10 {
				t.Errorf("paging: got=(%d,%d) want=(2,10)", f.Page, f.Lim)
			}
			return domain.ListReportsResponse{Reports: []domain.Incident{}, Page: 2, Limit: 10}, nil
		}).
		Times(1)

	req := httptest.NewRequest(http.MethodGet,
		"/api/reports?bbox=49.9,19.8,50.2,20.1&type=accident&page=2&limit=10", nil)
	rr := httptest.NewRecorder()

	h.ListReports(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}
}

func TestListReports_BadBBox_400(t *testing.T) {
	t.Parallel()

	cases := []string{
		"too,few,values",
		"a,b,c,d",
		"50.2,19.8,49.9,20.1", // inverted
		"95,0,96,1",           // out of range
	}

	for _, bbox := range cases {
		bbox := bbox
		t.Run(bbox, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			query := mock_reports.NewMockQuerier(ctrl)
			h := reports.NewHandler(newTestLogger(), nil, query)

			req := httptest.NewRequest(http.MethodGet, "/api/reports?bbox="+bbox, nil)
			rr := httptest.NewRecorder()

			h.ListReports(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected %d got %d body=%s", http.StatusBadRequest, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestListReports_ServiceError_500(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	query := mock_reports.NewMockQuerier(ctrl)
	h := reports.NewHandler(newTestLogger(), nil, query)

	query.EXPECT().
		List(gomock.Any(), gomock.Any()).
		Return(domain.ListReportsResponse{}, errors.New("pool closed")).
		Times(1)

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	rr := httptest.NewRecorder()

	h.ListReports(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected %d got %d body=%s", http.StatusInternalServerError, rr.Code, rr.Body.String())
	}
}
