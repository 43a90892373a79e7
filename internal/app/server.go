package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/markdave123-py/phiscan/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/phiscan/internal/api/middlewares"
	"github.com/markdave123-py/phiscan/internal/config"
	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/core/report"
	"github.com/markdave123-py/phiscan/internal/core/scanjob"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	queue      *scanjob.Queue
	logger     *slog.Logger
}

// NewServer builds and wires all routes.
func NewServer(a *App) (*Server, error) {
	cfg := a.Config

	redactor, err := a.redactor()
	if err != nil {
		return nil, err
	}

	var extra func() core.ReportSink
	if cfg.ReportBucket != "" {
		extra = func() core.ReportSink {
			return report.NewBucketSink(a.ObjectClient, cfg.ReportBucket, cfg.ReportPrefix, report.FormatJSONL, a.Logger)
		}
	}
	queue, err := scanjob.NewQueue(a.Router, cfg.JobCacheLen, extra, a.Logger)
	if err != nil {
		return nil, err
	}
	queue.SetRedactor(redactor)

	scanHandler := handlers.NewScanHandler(queue, a.Router, redactor, a.Logger)
	batchHandler := handlers.NewBatchHandler(a.Invocations)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", handlers.Health)
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(api chi.Router) {
		api.Get("/entity-types", handlers.EntityTypes)

		api.Group(func(protected chi.Router) {
			if cfg.JWTSecret != "" {
				protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
			} else {
				a.Logger.Warn("JWT_SECRET not set; scan endpoints are unauthenticated")
			}
			protected.Post("/scans", scanHandler.CreateScan)
			protected.Get("/scans/{id}", scanHandler.GetScan)
			protected.Get("/scans/{id}/findings", scanHandler.GetFindings)

			protected.With(middleware.Timeout(5*time.Minute)).Post("/objects/scan", scanHandler.ScanObject)
			protected.With(middleware.Timeout(15*time.Minute)).Post("/batch/invoke", batchHandler.Invoke)
		})
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{httpServer: httpSrv, queue: queue, logger: a.Logger}, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the scan workers and the HTTP server until the server stops.
func (s *Server) Start(ctx context.Context, workers int) error {
	s.queue.Start(ctx, workers)

	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

// Serve builds the app and runs the API until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, workers int) error {
	a, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := NewServer(a)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx, workers) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
