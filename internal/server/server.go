// Package server provides the HTTP approval API for queued applications.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/jobtriage/internal/approval"
	"github.com/jonathan/jobtriage/internal/fetch"
	"github.com/jonathan/jobtriage/internal/pipeline"
	"github.com/jonathan/jobtriage/internal/server/ratelimit"
	"github.com/jonathan/jobtriage/internal/types"
)

// Queue is the part of the approval queue the API drives.
type Queue interface {
	List(ctx context.Context, status types.Status) ([]types.Submission, error)
	Get(ctx context.Context, id string) (types.Submission, error)
	Approve(ctx context.Context, id string, edits approval.Edits) (types.Submission, error)
	Reject(ctx context.Context, id string) (types.Submission, error)
	RequestChanges(ctx context.Context, id, comments string) (types.Submission, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int, error)
}

// Pipeline generates and regenerates submissions.
type Pipeline interface {
	Submit(ctx context.Context, text string, source types.Provenance) (*pipeline.Outcome, error)
	Regenerate(ctx context.Context, id string) (types.Submission, error)
	RegenerateEmail(ctx context.Context, id string) (types.Submission, error)
}

// JobFetcher turns a posting URL into JD text.
type JobFetcher interface {
	JobText(ctx context.Context, url string) (*fetch.Result, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	queue       Queue
	pipeline    Pipeline
	fetcher     JobFetcher
	rateLimiter *ratelimit.Limiter
	validate    *validator.Validate
	logger      *slog.Logger
}

// Config holds server configuration
type Config struct {
	Port int
	// RateLimit defaults to ratelimit.LoadConfig()
	RateLimit *ratelimit.Config
	Logger    *slog.Logger
}

// Deps are the collaborators behind the routes. Fetcher may be nil, in which
// case submit-by-URL is rejected.
type Deps struct {
	Queue    Queue
	Pipeline Pipeline
	Fetcher  JobFetcher
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Queue == nil || deps.Pipeline == nil {
		return nil, errors.New("server: queue and pipeline are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rlConfig := cfg.RateLimit
	if rlConfig == nil {
		rlConfig = ratelimit.LoadConfig()
	}

	s := &Server{
		queue:       deps.Queue,
		pipeline:    deps.Pipeline,
		fetcher:     deps.Fetcher,
		rateLimiter: ratelimit.NewLimiter(rlConfig),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}

	s.validate.RegisterTagNameFunc(jsonTagName)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /approval/api/pending", s.handleListSubmissions)
	mux.HandleFunc("GET /approval/api/submission/{id}", s.handleGetSubmission)
	mux.HandleFunc("GET /approval/api/export.xlsx", s.handleExport)
	mux.HandleFunc("GET /approval/pdf/{id}", s.handlePDF)

	mux.HandleFunc("POST /approval/api/approve/{id}", s.handleApprove)
	mux.HandleFunc("POST /approval/api/send-now/{id}", s.handleSendNow)
	mux.HandleFunc("POST /approval/api/reject/{id}", s.handleReject)
	mux.HandleFunc("POST /approval/api/request-changes/{id}", s.handleRequestChanges)
	mux.HandleFunc("DELETE /approval/api/delete/{id}", s.handleDelete)
	mux.HandleFunc("DELETE /approval/api/delete-all", s.handleDeleteAll)

	mux.HandleFunc("POST /approval/api/manual-submit", s.handleManualSubmit)
	mux.HandleFunc("POST /approval/api/manual-submit/stream", s.handleManualSubmitStream)
	mux.HandleFunc("POST /approval/api/regenerate/{id}", s.handleRegenerate)
	mux.HandleFunc("POST /approval/api/regenerate-email/{id}", s.handleRegenerateEmail)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      chain(mux, s.rateLimited, s.logged, cors),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for resume compiles
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.rateLimiter.Stop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("error encoding JSON response", slog.Any("error", err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFrom maps err onto a status and writes it. Internal errors are logged
// and reported without detail.
func (s *Server) errorFrom(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	var unrecorded *approval.RecordError
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && !errors.As(err, &unrecorded) {
		s.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		s.errorResponse(w, status, "internal error")
		return
	}
	s.errorResponse(w, status, err.Error())
}
