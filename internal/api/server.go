package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"domainscout/internal/config"
	"domainscout/internal/dispatcher"
	"domainscout/internal/extract"
)

// Server wires HTTP handlers to the dispatcher and run store.
type Server struct {
	router     chi.Router
	runStore   extract.RunStore
	dispatcher *dispatcher.Dispatcher
	idGen      extract.IDGenerator
	clock      extract.Clock
	cfg        config.Config
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	runStore extract.RunStore,
	dispatch *dispatcher.Dispatcher,
	idGen extract.IDGenerator,
	clock extract.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		runStore:   runStore,
		dispatcher: dispatch,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.submitRun)
			r.Post("/standard", s.submitStandardRun)
			r.Route("/{run_id}", func(r chi.Router) {
				r.Get("/status", s.getRunStatus)
				r.Get("/result", s.getRunResult)
				r.Post("/cancel", s.cancelRun)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) submitRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, err := s.toRunParameters(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runID, err := s.enqueueRun(r.Context(), params)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) submitStandardRun(w http.ResponseWriter, r *http.Request) {
	var req standardRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing run name")
		return
	}
	templateParams, ok := s.cfg.StandardRuns[req.Name]
	if !ok {
		writeError(w, http.StatusNotFound, "standard run template not found")
		return
	}
	params := s.applyDefaults(cloneRunParameters(templateParams))
	if err := validateParameters(params); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runID, err := s.enqueueRun(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) getRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := s.runStore.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *Server) getRunResult(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := s.runStore.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	report, err := s.runStore.GetReport(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusConflict, "run has no report yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run, "report": report})
}

func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := s.runStore.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if run.Status.Terminal() {
		writeError(w, http.StatusConflict, "run already finished")
		return
	}
	if err := s.runStore.UpdateRunStatus(
		r.Context(),
		runID,
		extract.RunStatusCanceled,
		"canceled via API",
		run.Counters,
	); err != nil {
		writeError(w, http.StatusInternalServerError, "cancel failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"run_id": runID, "status": string(extract.RunStatusCanceled)})
}

func (s *Server) enqueueRun(ctx context.Context, params extract.RunParameters) (string, error) {
	runID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	now := s.clock.Now()
	run := extract.Run{
		ID:         runID,
		Status:     extract.RunStatusQueued,
		Submitted:  now,
		Parameters: params,
		Counters:   extract.RunCounters{},
	}
	if err := s.runStore.CreateRun(ctx, run); err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	item := extract.QueueItem{
		RunID:     runID,
		Params:    params,
		Attempt:   1,
		Submitted: now.Unix(),
	}
	if err := s.dispatcher.Enqueue(queueCtx, item); err != nil {
		return "", fmt.Errorf("enqueue run: %w", err)
	}
	return runID, nil
}

func (s *Server) toRunParameters(req runRequest) (extract.RunParameters, error) {
	params := extract.RunParameters{
		Keywords:    req.Keywords,
		Channel:     extract.Channel(req.Channel),
		MinScore:    valueOrDefault(req.MinScore, 0),
		Limit:       valueOrDefault(req.Limit, 0),
		MaxFiles:    valueOrDefault(req.MaxFiles, 0),
		MaxRecords:  valueOrDefault(req.MaxRecords, 0),
		MaxQueries:  valueOrDefault(req.MaxQueries, 0),
		FilterKnown: boolOrDefault(req.FilterKnown, true),
		Tags:        req.Tags,
	}
	params = s.applyDefaults(params)
	if err := validateParameters(params); err != nil {
		return extract.RunParameters{}, err
	}
	return params, nil
}

func validateParameters(params extract.RunParameters) error {
	if _, err := extract.NewKeywordSet(params.Keywords); err != nil {
		return fmt.Errorf("keywords: %w", err)
	}
	switch params.Channel {
	case extract.ChannelWET, extract.ChannelWAT, extract.ChannelIndex, extract.ChannelDork:
	default:
		return fmt.Errorf("channel must be one of wet, wat, index, dork")
	}
	if params.MinScore < 0 {
		return fmt.Errorf("min_score must be >= 0")
	}
	if params.Limit < 0 {
		return fmt.Errorf("limit must be >= 0")
	}
	return nil
}

func (s *Server) applyDefaults(params extract.RunParameters) extract.RunParameters {
	if params.Channel == "" {
		params.Channel = extract.ChannelWET
	}
	if params.MaxFiles == 0 {
		params.MaxFiles = s.cfg.CommonCrawl.MaxFilesDefault
	}
	if params.MaxRecords == 0 {
		params.MaxRecords = s.cfg.CommonCrawl.MaxRecordsDefault
	}
	if params.MaxQueries == 0 {
		params.MaxQueries = s.cfg.Dork.MaxQueriesDefault
	}
	if params.Tags == nil {
		params.Tags = map[string]string{}
	}
	return params
}

func cloneRunParameters(src extract.RunParameters) extract.RunParameters {
	cp := src
	if len(src.Keywords) > 0 {
		cp.Keywords = make([]string, len(src.Keywords))
		copy(cp.Keywords, src.Keywords)
	}
	if src.Tags != nil {
		cp.Tags = make(map[string]string, len(src.Tags))
		for k, v := range src.Tags {
			cp.Tags[k] = v
		}
	}
	return cp
}

type standardRunRequest struct {
	Name string `json:"name"`
}

type runRequest struct {
	Keywords    []string          `json:"keywords"`
	Channel     string            `json:"channel"`
	MinScore    *float64          `json:"min_score"`
	Limit       *int              `json:"limit"`
	MaxFiles    *int              `json:"max_files"`
	MaxRecords  *int              `json:"max_records"`
	MaxQueries  *int              `json:"max_queries"`
	FilterKnown *bool             `json:"filter_known"`
	Tags        map[string]string `json:"tags"`
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

func boolOrDefault(ptr *bool, def bool) bool {
	if ptr == nil {
		return def
	}
	return *ptr
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
