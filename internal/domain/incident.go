package domain

import (
	"time"

	"github.com/google/uuid"
)

type IncidentType string

const (
	IncidentAccident IncidentType = "accident"
	IncidentRoadwork IncidentType = "roadwork"
	IncidentClosure  IncidentType = "closure"
	IncidentOther    IncidentType = "other"
)

func (t IncidentType) Valid() bool {
	switch t {
	case IncidentAccident, IncidentRoadwork, IncidentClosure, IncidentOther:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

type IncidentStatus string

const (
	StatusPending  IncidentStatus = "pending"
	StatusAccepted IncidentStatus = "accepted"
	StatusRejected IncidentStatus = "rejected"
)

type Location struct {
	Lat float64 `json:"lat" validate:"lat"`
	Lng float64 `json:"lng" validate:"lng"`
}

func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

type Incident struct {
	ID          uuid.UUID      `json:"id"`
	Type        IncidentType   `json:"type"`
	Description string         `json:"description"`
	Severity    Severity       `json:"severity"`
	Lat         float64        `json:"lat"`
	Lng         float64        `json:"lng"`
	Status      IncidentStatus `json:"status"`
	Score       float64        `json:"score"`
	ReporterID  uuid.UUID      `json:"reporter_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (i *Incident) Location() Location {
	return Location{Lat: i.Lat, Lng: i.Lng}
}

// BoundingBox is a rectangular geographic filter. Min/Max follow the
// bbox query order minLat,minLng,maxLat,maxLng.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

func (b BoundingBox) Valid() bool {
	return b.MinLat >= -90 && b.MaxLat <= 90 &&
		b.MinLng >= -180 && b.MaxLng <= 180 &&
		b.MinLat <= b.MaxLat && b.MinLng <= b.MaxLng
}

func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.MinLat && loc.Lat <= b.MaxLat &&
		loc.Lng >= b.MinLng && loc.Lng <= b.MaxLng
}
