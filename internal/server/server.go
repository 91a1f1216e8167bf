// Package server exposes the export service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/totalaudiopromo/intel-export/internal/export"
	"github.com/totalaudiopromo/intel-export/internal/model"
	"github.com/totalaudiopromo/intel-export/internal/store"
)

// MaxBodyBytes caps the size of a request body.
const MaxBodyBytes = 10 << 20

const maxHistoryLimit = 500

// Exporter runs export jobs. *export.Service satisfies it.
type Exporter interface {
	ExportContacts(ctx context.Context, contacts []model.ContactRecord, opts model.Options, user string, onProgress export.ProgressFunc) model.Result
	ExportAnalytics(ctx context.Context, snap model.AnalyticsSnapshot, opts model.Options, user string, onProgress export.ProgressFunc) model.Result
	ExportSearchResults(ctx context.Context, set model.SearchResultSet, opts model.Options, user string, onProgress export.ProgressFunc) model.Result
	ExportAgentReport(ctx context.Context, r model.AgentReport, opts model.Options, user string, onProgress export.ProgressFunc) model.Result
	BatchExport(ctx context.Context, in model.BatchInput, opts model.Options, user string, onProgress export.ProgressFunc) model.BatchResult
}

// HistoryLister lists recorded export jobs.
type HistoryLister interface {
	ListExports(ctx context.Context, filter store.Filter) ([]model.JobRecord, error)
}

// ArtifactResolver maps an artifact id and name to a local file.
type ArtifactResolver interface {
	Path(id, name string) (string, error)
}

// Config tunes the HTTP layer.
type Config struct {
	RatePerSec     float64
	Burst          int
	AllowedOrigins []string
}

// Server routes API requests to an Exporter.
type Server struct {
	exporter  Exporter
	cfg       Config
	history   HistoryLister
	artifacts ArtifactResolver
	metrics   http.Handler
	limiter   *rate.Limiter
}

// Option customises a Server.
type Option func(*Server)

// WithHistory enables GET /v1/exports.
func WithHistory(h HistoryLister) Option {
	return func(s *Server) { s.history = h }
}

// WithArtifacts enables GET /v1/artifacts/{id}/{name}.
func WithArtifacts(a ArtifactResolver) Option {
	return func(s *Server) { s.artifacts = a }
}

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// New creates a Server. RatePerSec <= 0 disables rate limiting.
func New(exporter Exporter, cfg Config, opts ...Option) *Server {
	s := &Server{exporter: exporter, cfg: cfg}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/exports/batch", s.handleBatch)
		r.Post("/exports/{kind}", s.handleExport)
		r.Get("/exports", s.handleHistory)
		r.Get("/artifacts/{id}/{name}", s.handleArtifact)
	})
	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type exportRequest struct {
	Options model.Options   `json:"options"`
	User    string          `json:"user"`
	Data    json.RawMessage `json:"data"`
}

type exportResponse struct {
	model.Result
	Progress []model.ProgressEvent `json:"progress"`
}

type batchRequest struct {
	Options model.Options `json:"options"`
	User    string        `json:"user"`
	model.BatchInput
}

type batchResponse struct {
	model.BatchResult
	Progress []model.ProgressEvent `json:"progress"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	kind, ok := model.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown export kind")
		return
	}

	var req exportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var progress []model.ProgressEvent
	onProgress := func(ev model.ProgressEvent) { progress = append(progress, ev) }

	var res model.Result
	switch kind {
	case model.KindContacts:
		var contacts []model.ContactRecord
		if !decodeData(w, req.Data, &contacts) {
			return
		}
		res = s.exporter.ExportContacts(r.Context(), contacts, req.Options, req.User, onProgress)
	case model.KindAnalytics:
		var snap model.AnalyticsSnapshot
		if !decodeData(w, req.Data, &snap) {
			return
		}
		res = s.exporter.ExportAnalytics(r.Context(), snap, req.Options, req.User, onProgress)
	case model.KindSearchResults:
		var set model.SearchResultSet
		if !decodeData(w, req.Data, &set) {
			return
		}
		res = s.exporter.ExportSearchResults(r.Context(), set, req.Options, req.User, onProgress)
	case model.KindAgentReport:
		var report model.AgentReport
		if !decodeData(w, req.Data, &report) {
			return
		}
		res = s.exporter.ExportAgentReport(r.Context(), report, req.Options, req.User, onProgress)
	}

	writeJSON(w, resultStatus(res), exportResponse{Result: res, Progress: progress})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var progress []model.ProgressEvent
	res := s.exporter.BatchExport(r.Context(), req.BatchInput, req.Options, req.User, func(ev model.ProgressEvent) {
		progress = append(progress, ev)
	})

	status := http.StatusOK
	switch {
	case len(res.Results) == 0:
		status = http.StatusBadRequest
	case !res.Success:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, batchResponse{BatchResult: res, Progress: progress})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "export history is disabled")
		return
	}

	var filter store.Filter
	q := r.URL.Query()
	if k := q.Get("kind"); k != "" {
		kind, ok := model.ParseKind(k)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown export kind")
			return
		}
		filter.Kind = kind
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(n, maxHistoryLimit)
	}

	recs, err := s.history.ListExports(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list exports", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list exports")
		return
	}
	if recs == nil {
		recs = []model.JobRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": recs})
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if s.artifacts == nil {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	path, err := s.artifacts.Path(chi.URLParam(r, "id"), chi.URLParam(r, "name"))
	if err != nil {
		zap.L().Debug("server: artifact lookup", zap.Error(err))
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	http.ServeFile(w, r, path)
}

// resultStatus maps a job result onto an HTTP status: client errors are 400,
// any other failure 422.
func resultStatus(res model.Result) int {
	switch {
	case res.Success:
		return http.StatusOK
	case export.IsClientError(res.Err):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func decodeData(w http.ResponseWriter, raw json.RawMessage, v any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return true
	}
	if err := json.Unmarshal(raw, v); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "invalid data").Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
