// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: main.go passes in config, and New wires the
// whole dependency chain in one place —
//
//	sqlite.DB → SurveyService / ResponseService → handlers → routes
//
// Each layer only receives what it needs: services get the repository
// interfaces (not the concrete sqlite.DB), handlers get the services.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hiromu/schedo/internal/handler"
	"github.com/hiromu/schedo/internal/middleware"
	sqliteRepo "github.com/hiromu/schedo/internal/repository/sqlite"
	"github.com/hiromu/schedo/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port   int
	DBPath string
}

// Server represents the HTTP server and all its dependencies.
// It owns the database connection and closes it on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config, wiring the full
// dependency chain.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                      → liveness probe
//	GET    /api/surveys                  → list surveys (dates + response counts)
//	POST   /api/surveys                  → create survey with dates
//	GET    /api/surveys/{id}             → survey with sorted dates
//	PUT    /api/surveys/{id}             → edit title/description/dates
//	GET    /api/surveys/{id}/results     → tallies + matrix + notes
//	GET    /api/surveys/{id}/responses   → organizer's response listing
//	POST   /api/surveys/{id}/responses   → submit a response
//	POST   /api/responses/lookup         → find my response (cookie, then name)
//	GET    /api/responses/{id}           → response with answers
//	PUT    /api/responses/{id}           → edit answers in place
func (s *Server) setupRoutes() {
	// Middleware executes in the order it's added.
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	s.router.Use(middleware.Logger(s.logger))

	surveyService := service.NewSurveyService(s.db, s.db, s.logger)
	responseService := service.NewResponseService(s.db, s.db, s.logger)

	surveyHandler := handler.NewSurveyHandler(surveyService, responseService, s.logger)
	responseHandler := handler.NewResponseHandler(responseService, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/surveys", surveyHandler.HandleList)
		r.Post("/surveys", surveyHandler.HandleCreate)
		r.Get("/surveys/{id}", surveyHandler.HandleGet)
		r.Put("/surveys/{id}", surveyHandler.HandleUpdate)
		r.Get("/surveys/{id}/results", surveyHandler.HandleResults)
		r.Get("/surveys/{id}/responses", surveyHandler.HandleListResponses)
		r.Post("/surveys/{id}/responses", responseHandler.HandleSubmit)

		r.Post("/responses/lookup", responseHandler.HandleLookup)
		r.Get("/responses/{id}", responseHandler.HandleGet)
		r.Put("/responses/{id}", responseHandler.HandleUpdate)
	})
}

// Start starts the HTTP server and handles graceful shutdown:
// stop accepting connections, wait for in-flight requests (30s timeout),
// then close the database (flushes WAL, releases the file lock).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
