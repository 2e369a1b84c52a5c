// Package server exposes the engines over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/maplecrest-planning/taxplan-cli/internal/model"
	"github.com/maplecrest-planning/taxplan-cli/internal/oracle"
	"github.com/maplecrest-planning/taxplan-cli/internal/profile"
	"github.com/maplecrest-planning/taxplan-cli/internal/rates"
	"github.com/maplecrest-planning/taxplan-cli/internal/scenario"
	"github.com/maplecrest-planning/taxplan-cli/internal/store"
)

// Server wires the profile builder and engines into an HTTP API. The store
// is optional; without one, runs are simply not recorded.
type Server struct {
	builder  *profile.Builder
	oracle   oracle.Oracle
	rates    *rates.Engine
	scenario *scenario.Engine
	store    store.Store
}

// New creates a server. st may be nil to disable run recording.
func New(b *profile.Builder, o oracle.Oracle, re *rates.Engine, se *scenario.Engine, st store.Store) *Server {
	return &Server{builder: b, oracle: o, rates: re, scenario: se, store: st}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/calculate", s.handleCalculate)
		r.Post("/rates", s.handleRates)
		r.Post("/optimize", s.handleOptimize)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

// evaluateRequest is the shared body of the three engine endpoints.
type evaluateRequest struct {
	Jurisdiction string            `json:"jurisdiction"`
	Personal     *model.Personal   `json:"personal,omitempty"`
	Fields       []model.LineField `json:"fields"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	p, ok := s.buildProfile(w, r)
	if !ok {
		return
	}
	runID := s.startRun(r, model.RunCalculate, p)

	res, err := s.oracle.Evaluate(r.Context(), p)
	if err != nil {
		s.finishRun(r, runID, nil, err)
		writeEngineError(w, err)
		return
	}
	s.finishRun(r, runID, res, nil)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	p, ok := s.buildProfile(w, r)
	if !ok {
		return
	}
	runID := s.startRun(r, model.RunRates, p)

	set, err := s.rates.Rates(r.Context(), p)
	if err != nil {
		s.finishRun(r, runID, nil, err)
		writeEngineError(w, err)
		return
	}
	s.finishRun(r, runID, set, nil)
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	p, ok := s.buildProfile(w, r)
	if !ok {
		return
	}
	runID := s.startRun(r, model.RunOptimize, p)

	set, err := s.scenario.Optimize(r.Context(), p)
	if err != nil {
		s.finishRun(r, runID, nil, err)
		writeEngineError(w, err)
		return
	}
	s.finishRun(r, runID, set, nil)
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "run store not configured")
		return
	}
	filter := store.RunFilter{
		Kind:   model.RunKind(r.URL.Query().Get("kind")),
		Status: model.RunStatus(r.URL.Query().Get("status")),
	}
	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "run store not configured")
		return
	}
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// buildProfile decodes and validates the request body. On failure it writes
// the error response and returns ok=false.
func (s *Server) buildProfile(w http.ResponseWriter, r *http.Request) (model.TaxProfile, bool) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return model.TaxProfile{}, false
	}

	p, err := s.builder.Build(req.Fields, model.Jurisdiction(req.Jurisdiction), req.Personal)
	if err != nil {
		var verr *profile.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusUnprocessableEntity, verr.Error())
			return model.TaxProfile{}, false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return model.TaxProfile{}, false
	}
	return p, true
}

func (s *Server) startRun(r *http.Request, kind model.RunKind, p model.TaxProfile) string {
	if s.store == nil {
		return ""
	}
	run, err := s.store.CreateRun(r.Context(), kind, p)
	if err != nil {
		zap.L().Warn("create run record", zap.String("kind", string(kind)), zap.Error(err))
		return ""
	}
	return run.ID
}

func (s *Server) finishRun(r *http.Request, runID string, result any, cause error) {
	if s.store == nil || runID == "" {
		return
	}
	var err error
	if cause != nil {
		err = s.store.FailRun(r.Context(), runID, cause)
	} else {
		err = s.store.CompleteRun(r.Context(), runID, result)
	}
	if err != nil {
		zap.L().Warn("update run record", zap.String("run_id", runID), zap.Error(err))
	}
}

// writeEngineError maps oracle failures to 502 and everything else to 500.
// Results are never zero-filled on failure; the body is an error object.
func writeEngineError(w http.ResponseWriter, err error) {
	if oerr, ok := oracle.AsOracleError(err); ok {
		zap.L().Error("oracle evaluation failed",
			zap.String("reason", string(oerr.Reason)),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, oerr.Error())
		return
	}
	zap.L().Error("evaluation failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "evaluation failed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
