package domain

import (
	"time"

	"github.com/google/uuid"
)

const EventIncidentCreated = "incident_created"

// IncidentEvent is a live update frame pushed to subscribers.
type IncidentEvent struct {
	Type     string   `json:"type"`
	Incident Incident `json:"incident"`
}

// WebhookPayload notifies an external endpoint about an accepted incident.
type WebhookPayload struct {
	IncidentID uuid.UUID    `json:"incident_id"`
	Type       IncidentType `json:"incident_type"`
	Severity   Severity     `json:"severity"`
	Lat        float64      `json:"lat"`
	Lng        float64      `json:"lng"`
	AcceptedAt time.Time    `json:"accepted_at"`
}
