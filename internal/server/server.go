// Package server provides the HTTP API of the recommender service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/littlelifetrip/ai-recommender/internal/logger"
	"github.com/littlelifetrip/ai-recommender/internal/server/middleware"
	"github.com/littlelifetrip/ai-recommender/internal/types"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "ai-recommender-service"

const shutdownTimeout = 30 * time.Second

// Recommender runs the generation use-cases behind the API.
type Recommender interface {
	Recommend(ctx context.Context, req *types.RecommendationRequest) (*types.TripPlan, error)
	Explain(ctx context.Context, req *types.ExplainRequest) (*types.ExplainResult, error)
	Improve(ctx context.Context, req *types.ImproveRequest) (*types.ImproveResult, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	recommender Recommender
	log         *logger.Logger
	drain       func(context.Context) error
}

// Config holds server configuration
type Config struct {
	Port        int
	Debug       bool
	Recommender Recommender
	JWT         *JWTService
	Logger      *logger.Logger
	// Drain blocks until background work started by requests has finished.
	Drain func(ctx context.Context) error
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Recommender == nil {
		return nil, errors.New("server: recommender is required")
	}
	if cfg.JWT == nil {
		return nil, errors.New("server: JWT service is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		recommender: cfg.Recommender,
		log:         log.With("component", "http"),
		drain:       cfg.Drain,
	}

	auth := middleware.AuthMiddleware(cfg.JWT.AsTokenValidator())

	mux := http.NewServeMux()
	mux.Handle("POST /internal/v1/ai/recommend", auth(http.HandlerFunc(s.handleRecommend)))
	mux.Handle("POST /internal/v1/ai/explain", auth(http.HandlerFunc(s.handleExplain)))
	mux.Handle("POST /internal/v1/ai/improve", auth(http.HandlerFunc(s.handleImprove)))
	mux.HandleFunc("GET /recommender/health", s.handleHealth)

	if cfg.Debug {
		mux.HandleFunc("GET /recommender/openapi.json", s.handleOpenAPI)
		mux.HandleFunc("GET /recommender/docs", s.handleDocs)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRecovery(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // generation may retry several slow model calls
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled. In-flight requests get shutdownTimeout to finish,
// after which pending background audit writes are awaited within the same budget.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.drain != nil {
		if err := s.drain(shutdownCtx); err != nil {
			s.log.Warn("background writes still pending at shutdown", "error", err)
		}
	}

	s.log.Info("server stopped")
	return nil
}

// withCORS allows calls from any origin.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		kv := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", r.RemoteAddr,
		}
		if r.URL.Path == "/recommender/health" {
			s.log.Debug("request completed", kv...)
			return
		}
		s.log.Info("request completed", kv...)
	})
}

// withRecovery turns a handler panic into a 500 response.
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.log.Error("handler panicked", "method", r.Method, "path", r.URL.Path, "panic", fmt.Sprint(rec))
				s.jsonResponse(w, http.StatusInternalServerError, ErrorResponse{
					Error:   CodeInternal,
					Message: "internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		s.log.Warn("failed to encode JSON response", "error", err)
	}
}

// errorResponse classifies err and writes the matching error body.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	st := HTTPStatus(err)

	kv := []any{"path", r.URL.Path, "status", st.Code, "code", st.ErrorCode, "error", err}
	if subject, subjErr := middleware.GetSubject(r); subjErr == nil {
		kv = append(kv, "caller", subject)
	}
	if st.Code >= http.StatusInternalServerError {
		s.log.Error("request failed", kv...)
	} else {
		s.log.Warn("request rejected", kv...)
	}

	s.jsonResponse(w, st.Code, ErrorResponse{
		Error:     st.ErrorCode,
		Message:   errorMessage(err, st),
		Retryable: st.Retryable,
	})
}
