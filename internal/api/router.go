package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "github.com/AzenoHI/travel-hi/internal/api/handlers/http/auth"
	"github.com/AzenoHI/travel-hi/internal/api/handlers/http/reports"
	"github.com/AzenoHI/travel-hi/internal/api/handlers/http/system"
	"github.com/AzenoHI/travel-hi/internal/api/handlers/http/ws"
	"github.com/AzenoHI/travel-hi/internal/config"
	"github.com/AzenoHI/travel-hi/internal/live"
	"github.com/AzenoHI/travel-hi/internal/middleware"
	"github.com/AzenoHI/travel-hi/internal/observability"
	"github.com/AzenoHI/travel-hi/internal/service"
)

type Server struct {
	logger *slog.Logger
	router *chi.Mux
	cfg    config.Config
}

func NewServer(cfg *config.Config, logger *slog.Logger, svc *service.Service, hub *live.Hub, metrics *observability.Metrics) *Server {
	reportsHandler := reports.NewHandler(logger, svc.Ingest, svc.Query)
	authHandler := authhandler.NewHandler(logger, svc.Auth)
	wsHandler := ws.NewHandler(logger, hub, metrics, cfg.Live)
	systemHandler := system.NewHandler(logger)

	r := InitRouter(cfg, svc, reportsHandler, authHandler, wsHandler, systemHandler, logger)

	return &Server{
		logger: logger,
		router: r,
		cfg:    *cfg,
	}
}

func InitRouter(
	cfg *config.Config,
	svc *service.Service,
	reportsHandler *reports.Handler,
	authHandler *authhandler.Handler,
	wsHandler *ws.Handler,
	systemHandler *system.Handler,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewMux()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			ar.Use(middleware.Limit(5, 10, 10*time.Minute, logger))
			ar.Post("/register", authHandler.Register)
			ar.Post("/login", authHandler.Login)
		})

		api.Route("/reports", func(rr chi.Router) {
			rr.Get("/", reportsHandler.ListReports)
			rr.Get("/{id}", reportsHandler.GetReport)

			rr.Group(func(pr chi.Router) {
				pr.Use(middleware.BearerAuth(svc.Auth, logger))
				pr.Use(middleware.Limit(10, 20, 5*time.Minute, logger))
				pr.Post("/", reportsHandler.SubmitReport)
			})
		})
	})

	r.Get("/ws/updates", wsHandler.Updates)
	r.Get("/health", systemHandler.SystemHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Http.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:         port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Http.ReadTimeout,
		WriteTimeout: s.cfg.Http.WriteTimeout,
		IdleTimeout:  30 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Starting HTTP server",
			slog.String("addr", srv.Addr),
			slog.Duration("read_timeout", s.cfg.Http.ReadTimeout),
			slog.Duration("write_timeout", s.cfg.Http.WriteTimeout),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("ListenAndServe error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server", slog.String("reason", ctx.Err().Error()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Http.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server shutdown failed", slog.Any("error", err))
			return err
		}
		return nil

	case err := <-errChan:
		return err
	}
}
