// Package gateway exposes the execution service over HTTP: one synchronous
// /run call per code execution, plus health and metrics endpoints.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crucible-sandbox/crucible/pkg/domain"
	"github.com/crucible-sandbox/crucible/pkg/languages"
	"github.com/crucible-sandbox/crucible/pkg/profiler"
	"github.com/crucible-sandbox/crucible/pkg/session"
	"github.com/crucible-sandbox/crucible/pkg/telemetry"
)

// SandboxFactory builds a fresh sandbox per request, so parallel requests
// never share an environment or a sample log.
type SandboxFactory func(ctx context.Context, lang languages.Language) (session.Sandbox, error)

// DefaultTimeout bounds one execution end to end.
const DefaultTimeout = 60 * time.Second

type Server struct {
	Languages  *languages.Registry
	NewSandbox SandboxFactory
	Timeout    time.Duration
	Logger     telemetry.Logger
	Metrics    telemetry.Metrics
}

// Handler returns the service's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/run", s.handleRun)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	logger := s.Logger
	if logger == nil {
		logger = telemetry.NewNopLogger()
	}
	metrics := s.Metrics
	if metrics == nil {
		metrics = telemetry.NewNopMetrics()
	}

	var req domain.ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	if req.ID == "" {
		req.ID = domain.ExecutionID(uuid.NewString())
	}

	lang, err := s.Languages.Get(req.Language)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	started := time.Now()
	logger.Info(ctx, "Execution accepted", map[string]any{
		"id": req.ID, "lang": lang.Name, "profile": req.Profile,
	})

	res, err := s.execute(ctx, lang, &req)
	status := "ok"
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			status = "timeout"
			writeError(w, http.StatusGatewayTimeout, "timeout reached")
		case errors.Is(err, profiler.ErrSpawn):
			status = "spawn_failure"
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			status = "error"
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		logger.Error(ctx, "Execution failed", map[string]any{"id": req.ID, "error": err.Error()})
	} else {
		res.ID = req.ID
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	}

	metrics.IncCounter("crucible_executions_total", 1,
		telemetry.Label{Key: "lang", Value: lang.Name},
		telemetry.Label{Key: "status", Value: status})
	metrics.ObserveHistogram("crucible_gateway_seconds", time.Since(started).Seconds(),
		telemetry.Label{Key: "lang", Value: lang.Name})
}

func (s *Server) execute(ctx context.Context, lang languages.Language, req *domain.ExecutionRequest) (*domain.ExecutionResult, error) {
	sb, err := s.NewSandbox(ctx, lang)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Teardown must happen even when the request context is spent.
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if cerr := sb.Close(closeCtx); cerr != nil && s.Logger != nil {
			s.Logger.Error(closeCtx, "Failed to close sandbox", map[string]any{
				"id": req.ID, "error": cerr.Error(),
			})
		}
	}()

	if err := sb.Open(ctx); err != nil {
		return nil, err
	}
	if len(req.Libraries) > 0 {
		if err := sb.Setup(ctx, req.Libraries); err != nil {
			return nil, err
		}
	}
	return sb.Run(ctx, req.Code, req.Profile)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
