// Package server exposes the HTTP ingress and egress surface: job submission
// (URL or upload), progress streaming over SSE, and artifact retrieval.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"clipsight/internal/bus"
	"clipsight/internal/config"
	"clipsight/internal/jobstore"
	"clipsight/internal/logging"
	"clipsight/internal/services"
)

// Submitter is the pipeline surface the HTTP layer drives.
type Submitter interface {
	SubmitURL(ctx context.Context, rawURL string) (string, error)
	SubmitUpload(ctx context.Context, jobID string) error
}

// Server serves the clipsight HTTP API.
type Server struct {
	cfg    *config.Config
	store  *jobstore.Store
	events *bus.Bus
	jobs   Submitter
	logger *slog.Logger

	httpServer *http.Server
	listener   net.Listener
}

// New constructs the HTTP server. Start must be called to begin serving.
func New(cfg *config.Config, store *jobstore.Store, events *bus.Bus, jobs Submitter, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		events: events,
		jobs:   jobs,
		logger: logging.NewComponentLogger(logger, "server"),
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the routed and CORS-wrapped handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/analyze", s.handleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/api/analyze/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs", s.handleListJobs).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}", s.handleJobStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}/events", s.handleJobEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}/report", s.handleJobReport).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}/video", s.handleJobVideo).Methods(http.MethodGet)

	var handler http.Handler = r
	if s.cfg.API.RequestLogger {
		handler = s.requestLogger(handler)
	}

	corsOptions := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}
	if len(s.cfg.API.CORSOrigins) > 0 {
		corsOptions.AllowedOrigins = s.cfg.API.CORSOrigins
	} else {
		corsOptions.AllowedOrigins = []string{"*"}
	}
	return cors.New(corsOptions).Handler(handler)
}

// Start binds the configured address and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Paths.APIBind)
	if err != nil {
		return err
	}
	s.listener = listener
	s.logger.Info("api listening", logging.String("addr", listener.Addr().String()))
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server stopped", logging.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		r = r.WithContext(services.WithRequestID(r.Context(), requestID))
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info("request",
			logging.String(logging.FieldCorrelationID, requestID),
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", recorder.status),
			logging.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps SSE streaming working through the logging wrapper.
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
