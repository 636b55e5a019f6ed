// Package live implements the real-time incident fan-out: an in-process
// publish/subscribe hub filtered by geographic bounding box. Delivery is
// best effort and at most once per event; there is no replay of missed
// events.
package live

import (
	"log/slog"
	"sync"

	"github.com/AzenoHI/travel-hi/internal/domain"

	"github.com/google/uuid"
)

// Subscription is one connected viewer. Events matching the filter arrive
// on C until Unsubscribe closes it.
type Subscription struct {
	ID     uuid.UUID
	Filter domain.BoundingBox
	C      <-chan domain.IncidentEvent

	ch chan domain.IncidentEvent
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscription
	buffer int
	closed bool

	logger *slog.Logger

	// observed by metrics; nil-safe
	onDelivered func()
	onDropped   func()
}

type Option func(*Hub)

// WithDeliveryHooks wires counters for delivered and dropped events.
func WithDeliveryHooks(delivered, dropped func()) Option {
	return func(h *Hub) {
		h.onDelivered = delivered
		h.onDropped = dropped
	}
}

func NewHub(buffer int, logger *slog.Logger, opts ...Option) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	h := &Hub{
		subs:   make(map[uuid.UUID]*Subscription),
		buffer: buffer,
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Subscribe(filter domain.BoundingBox) *Subscription {
	ch := make(chan domain.IncidentEvent, h.buffer)
	sub := &Subscription{
		ID:     uuid.New(),
		Filter: filter,
		C:      ch,
		ch:     ch,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub.ID] = sub

	h.logger.Debug("subscriber added",
		slog.String("id", sub.ID.String()),
		slog.Int("subscribers", len(h.subs)),
	)
	return sub
}

// Unsubscribe removes the registration and closes the event channel.
// Safe to call twice and after hub close.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.ch)

	h.logger.Debug("subscriber removed",
		slog.String("id", id.String()),
		slog.Int("subscribers", len(h.subs)),
	)
}

// Publish fans the event out to every subscriber whose bounding box
// contains the incident location. Sends never block: a subscriber with a
// full buffer loses this event, everyone else still gets their copy.
func (h *Hub) Publish(event domain.IncidentEvent) {
	loc := event.Incident.Location()

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	for _, sub := range h.subs {
		if !sub.Filter.Contains(loc) {
			continue
		}
		select {
		case sub.ch <- event:
			if h.onDelivered != nil {
				h.onDelivered()
			}
		default:
			if h.onDropped != nil {
				h.onDropped()
			}
			h.logger.Warn("subscriber buffer full, event dropped",
				slog.String("subscriber", sub.ID.String()),
				slog.String("incident", event.Incident.ID.String()),
			)
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close tears down every subscription. Further Publish calls are no-ops
// and further Subscribe calls return an already-closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
