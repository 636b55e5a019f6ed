package reports

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"log/slog"

	"github.com/AzenoHI/travel-hi/internal/domain"
	"github.com/AzenoHI/travel-hi/internal/middleware"
	"github.com/AzenoHI/travel-hi/pkg/e"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock.go
type Ingestor interface {
	Submit(ctx context.Context, identity domain.Identity, req domain.SubmitReportRequest) (*domain.Incident, error)
}

type Querier interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	List(ctx context.Context, filter domain.ReportFilter) (domain.ListReportsResponse, error)
}

type Handler struct {
	logger *slog.Logger
	Ingest Ingestor
	Query  Querier
}

func NewHandler(logger *slog.Logger, ingest Ingestor, query Querier) *Handler {
	return &Handler{
		logger: logger,
		Ingest: ingest,
		Query:  query,
	}
}

func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req domain.SubmitReportRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	l.Info("report submitted",
		slog.String("type", string(req.Type)),
		slog.Float64("lat", req.Lat),
		slog.Float64("lng", req.Lng),
		slog.String("user", identity.Username),
	)

	incident, err := h.Ingest.Submit(r.Context(), identity, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, incident)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		l.Warn("invalid id", slog.String("id", idStr))
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	incident, err := h.Query.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, incident)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	filter, err := parseFilter(r)
	if err != nil {
		l.Warn("bad query", slog.Any("error", err))
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	resp, err := h.Query.List(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	l := h.log(r)

	var rejection *e.RejectionError
	switch {
	case errors.As(err, &rejection):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":  "rejected",
			"reason": rejection.Reason,
		})
	case errors.Is(err, e.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, e.ErrInvalidInput):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, e.ErrUnauthorized):
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	default:
		l.Error("request failed", slog.Any("error", err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
