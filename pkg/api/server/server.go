// Package server exposes read and generate operations of a manager over
// HTTP, next to health and Prometheus endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/rzbill/keel/pkg/api/rest"
	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/manager"
	"github.com/rzbill/keel/pkg/types"
	"github.com/rzbill/keel/pkg/validation"
)

// APIServer serves the HTTP API.
type APIServer struct {
	opts    *Options
	manager *manager.Manager
	logger  log.Logger
	handler http.Handler
}

// New creates a server for m.
func New(m *manager.Manager, opts ...Option) *APIServer {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	s := &APIServer{
		opts:    options,
		manager: m,
		logger:  options.Logger.WithComponent("api-server"),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler, including middleware.
func (s *APIServer) Handler() http.Handler { return s.handler }

func (s *APIServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /v1/deployments", s.handleDeployments)
	api.HandleFunc("GET /v1/config/{path...}", s.handleConfig)
	api.HandleFunc("GET /v1/validate/{deployment}", s.handleValidate)
	api.HandleFunc("POST /v1/generate/{deployment}", s.handleGenerate)
	mux.Handle("/v1/", rest.APIKey(s.opts.APIKeys, s.logger)(api))

	return rest.Chain(
		rest.Recovery(s.logger),
		rest.Logger(s.logger),
		rest.Timeout(s.opts.RequestTimeout),
	)(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *APIServer) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.opts.Addr, Handler: s.handler}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server", log.Str("address", s.opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Stopping API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error shutting down API server", log.Err(err))
		return err
	}
	return <-errCh
}

func (s *APIServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type deploymentsResponse struct {
	Current     string   `json:"current,omitempty"`
	Deployments []string `json:"deployments"`
}

func (s *APIServer) handleDeployments(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.manager.Config(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := deploymentsResponse{Current: cfg.CurrentDeployment, Deployments: []string{}}
	for _, d := range cfg.Deployments {
		resp.Deployments = append(resp.Deployments, d.Name)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	n, err := s.manager.Get(r.Context(), r.PathValue("path"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	v, err := nodeValue(n)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type problem struct {
	Severity    string `json:"severity"`
	Location    string `json:"location,omitempty"`
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

type validateResponse struct {
	Deployment string    `json:"deployment"`
	Blocking   bool      `json:"blocking"`
	Problems   []problem `json:"problems"`
}

func (s *APIServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	min, err := validation.ParseSeverity(r.URL.Query().Get("severity"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	deployment := r.PathValue("deployment")
	ps, err := s.manager.Validate(r.Context(), deployment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Deployment: deployment,
		Blocking:   ps.Blocking(),
		Problems:   problems(ps, min),
	})
}

type generateResponse struct {
	Deployment  string    `json:"deployment"`
	RunID       string    `json:"runId,omitempty"`
	StagingPath string    `json:"stagingPath,omitempty"`
	Files       []string  `json:"files,omitempty"`
	Problems    []problem `json:"problems"`
}

func (s *APIServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	opts := manager.Options{}
	if raw := r.URL.Query().Get("noValidate"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, types.IllegalArgumentf("noValidate: %v", err))
			return
		}
		opts.NoValidate = v
	}
	deployment := r.PathValue("deployment")
	rc, ps, err := s.manager.Generate(r.Context(), deployment, opts)
	resp := generateResponse{Deployment: deployment, Problems: []problem{}}
	if ps != nil {
		resp.Problems = problems(ps, validation.SeverityWarning)
	}
	if errors.Is(err, types.ErrValidationFailed) {
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp.RunID = rc.RunID
	resp.StagingPath = rc.StagingPath
	resp.Files = rc.StagedFiles()
	writeJSON(w, http.StatusOK, resp)
}

func problems(ps *validation.ProblemSet, min validation.Severity) []problem {
	out := []problem{}
	for _, p := range ps.Filter(min) {
		out = append(out, problem{
			Severity:    p.Severity.String(),
			Location:    p.Location,
			Message:     p.Message,
			Remediation: p.Remediation,
		})
	}
	return out
}

// nodeValue converts a node into plain maps and slices using its YAML
// field names.
func nodeValue(n types.Node) (interface{}, error) {
	data, err := yaml.Marshal(n)
	if err != nil {
		return nil, types.Fatalf(err, "encode node")
	}
	var v interface{}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, types.Fatalf(err, "decode node")
	}
	return v, nil
}

type errorResponse struct {
	Code  types.ErrorCode `json:"code"`
	Error string          `json:"error"`
}

// statusOf maps an error code to an HTTP status.
func statusOf(code types.ErrorCode) int {
	switch code {
	case types.CodeNotFound:
		return http.StatusNotFound
	case types.CodeDuplicate:
		return http.StatusConflict
	case types.CodeIllegalArgument:
		return http.StatusBadRequest
	case types.CodeValidationFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	code := types.CodeOf(err)
	status := statusOf(code)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", log.Err(err))
		if code == "" {
			code = types.CodeFatal
		}
	}
	writeJSON(w, status, errorResponse{Code: code, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
