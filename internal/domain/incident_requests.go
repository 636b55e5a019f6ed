package domain

import "time"

type SubmitReportRequest struct {
	Type IncidentType `json:"type" validate:"required,incident_type"`
	// Description length is capped by ReportConfig.MaxDescriptionLen, not
	// by a struct tag, so the limit stays configurable.
	Description string  `json:"description"`
	Lat         float64 `json:"lat" validate:"lat"`
	Lng         float64 `json:"lng" validate:"lng"`
	// Severity is a suggestion only. The moderation verdict wins.
	Severity Severity `json:"severity" validate:"severity"`
}

type ReportFilter struct {
	BBox *BoundingBox
	From *time.Time
	To   *time.Time
	Type IncidentType
	Page int
	Lim  int
}

type ListReportsResponse struct {
	Reports []Incident `json:"reports"`
	Total   int64      `json:"total"`
	Page    int        `json:"page"`
	Limit   int        `json:"limit"`
}
