// Package ws bridges the live hub to WebSocket connections. One
// subscription per connection; closing the socket tears the subscription
// down. Missed events are not replayed.
package ws

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/AzenoHI/travel-hi/internal/api/handlers/http/reports"
	"github.com/AzenoHI/travel-hi/internal/config"
	"github.com/AzenoHI/travel-hi/internal/live"
	"github.com/AzenoHI/travel-hi/internal/observability"

	"github.com/gorilla/websocket"
)

type Handler struct {
	logger  *slog.Logger
	hub     *live.Hub
	metrics *observability.Metrics
	cfg     config.LiveConfig

	upgrader websocket.Upgrader
}

func NewHandler(logger *slog.Logger, hub *live.Hub, metrics *observability.Metrics, cfg config.LiveConfig) *Handler {
	return &Handler{
		logger:  logger,
		hub:     hub,
		metrics: metrics,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The map front end is served from a different origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Updates handles GET /ws/updates?bbox=minLat,minLng,maxLat,maxLng.
func (h *Handler) Updates(w http.ResponseWriter, r *http.Request) {
	bbox, err := reports.ParseBBox(r.URL.Query().Get("bbox"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	sub := h.hub.Subscribe(bbox)
	h.metrics.LiveSubscribers.Inc()
	h.logger.Info("live subscriber connected",
		slog.String("id", sub.ID.String()),
		slog.String("remote", r.RemoteAddr),
	)

	_ = conn.WriteJSON(map[string]string{"type": "welcome", "message": "connected"})

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, sub, done)

	h.hub.Unsubscribe(sub.ID)
	h.metrics.LiveSubscribers.Dec()
	_ = conn.Close()
	h.logger.Info("live subscriber disconnected", slog.String("id", sub.ID.String()))
}

// readPump drains incoming frames so pong handling works, and signals when
// the peer goes away. A peer that stops answering pings trips the read
// deadline after two ping intervals.
func (h *Handler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	pongWait := 2 * h.cfg.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, sub *live.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("live write failed", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
