package reports

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AzenoHI/travel-hi/internal/domain"

	chimw "github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) log(r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return h.logger
	}
	return h.logger.With(slog.String("request_id", reqID))
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("json encode failed", slog.Any("error", err))
	}
}

func parseFilter(r *http.Request) (domain.ReportFilter, error) {
	q := r.URL.Query()

	filter := domain.ReportFilter{
		Page: parseInt(q.Get("page"), 1),
		Lim:  parseInt(q.Get("limit"), 0),
	}

	if raw := q.Get("bbox"); raw != "" {
		bbox, err := ParseBBox(raw)
		if err != nil {
			return filter, err
		}
		filter.BBox = &bbox
	}

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("malformed from timestamp %q", raw)
		}
		filter.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("malformed to timestamp %q", raw)
		}
		filter.To = &t
	}

	if raw := q.Get("type"); raw != "" {
		filter.Type = domain.IncidentType(raw)
	}

	return filter, nil
}

// ParseBBox parses "minLat,minLng,maxLat,maxLng".
func ParseBBox(raw string) (domain.BoundingBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return domain.BoundingBox{}, fmt.Errorf("bbox wants 4 comma-separated values, got %d", len(parts))
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.BoundingBox{}, fmt.Errorf("malformed bbox value %q", p)
		}
		vals[i] = f
	}

	bbox := domain.BoundingBox{
		MinLat: vals[0],
		MinLng: vals[1],
		MaxLat: vals[2],
		MaxLng: vals[3],
	}
	if !bbox.Valid() {
		return domain.BoundingBox{}, fmt.Errorf("bbox out of range or inverted")
	}
	return bbox, nil
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
