package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/labkit/internal/domain"
	"github.com/kailas-cloud/labkit/internal/logger"
	"github.com/kailas-cloud/labkit/internal/secret"
	healthuc "github.com/kailas-cloud/labkit/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// DatasetReader loads stored bundles.
type DatasetReader interface {
	Get(ctx context.Context, name string) (domain.Bundle, error)
}

// ChatCompleter runs text generation.
type ChatCompleter interface {
	Complete(ctx context.Context, modelID, prompt string, maxRetries int) (domain.Completion, error)
}

// HealthChecker aggregates component checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves stored datasets and chat completions to notebooks.
type Server struct {
	datasets      DatasetReader
	chat          ChatCompleter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(datasets DatasetReader, chat ChatCompleter, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		datasets: datasets,
		chat:     chat,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeDatasetNotFound),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusUnprocessableEntity, ErrorCodeValidationFailed),
		sentinelHandler(secret.ErrMissing, http.StatusServiceUnavailable, ErrorCodeGatewayUnavailable),
		sentinelHandler(domain.ErrGatewayError, http.StatusBadGateway, ErrorCodeGatewayError),
	}
	return s
}

// Routes mounts the handlers on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/datasets/{name}", s.GetDataset)
	r.Get("/datasets/{name}/metadata", s.GetDatasetMetadata)
	r.Post("/chat", s.Chat)
}

// GetDataset handles GET /datasets/{name}.
func (s *Server) GetDataset(w http.ResponseWriter, r *http.Request) {
	b, err := s.datasets.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DatasetResponse{
		Name:     b.Name,
		Columns:  b.Table.Columns,
		RowCount: b.Table.Len(),
		Rows:     b.Table.Rows,
		Metadata: b.Metadata,
	})
}

// GetDatasetMetadata handles GET /datasets/{name}/metadata.
func (s *Server) GetDatasetMetadata(w http.ResponseWriter, r *http.Request) {
	b, err := s.datasets.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MetadataResponse{
		Name:     b.Name,
		Columns:  b.Table.Columns,
		Metadata: b.Metadata,
	})
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	maxRetries := -1
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	out, err := s.chat.Complete(r.Context(), req.Model, req.Prompt, maxRetries)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse(out))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// writeJSON marshals v before touching the response, so a value that cannot be
// encoded (e.g. a ±Inf cell) turns into a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{
			Code:    ErrorCodeInternalError,
			Message: "response encoding failed",
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidInput,
		domain.ErrInvalidSchema,
		secret.ErrMissing,
		domain.ErrGatewayError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
