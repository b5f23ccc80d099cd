package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fenchurch-labs/corep-assistant/internal/analyze"
	"github.com/fenchurch-labs/corep-assistant/internal/extract"
	"github.com/fenchurch-labs/corep-assistant/internal/model"
	"github.com/fenchurch-labs/corep-assistant/internal/render"
	"github.com/fenchurch-labs/corep-assistant/internal/resilience"
	"github.com/fenchurch-labs/corep-assistant/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Serves the analyze, retrieve, render, and audit endpoints over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAnalyzer(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &server{
			analyzer:     env.Analyzer,
			searcher:     env.Searcher,
			audits:       env.Store,
			renderer:     env.Renderer,
			topK:         cfg.Retrieval.TopK,
			breakerState: env.Analyzer.BreakerState,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(srv),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown. A fresh context lets in-flight requests drain
		// after the signal context is canceled.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// analysisRunner runs one scenario analysis. Satisfied by analyze.Analyzer.
type analysisRunner interface {
	Run(ctx context.Context, req analyze.Request) (*model.Analysis, error)
}

// contextSearcher retrieves ranked regulatory context. Satisfied by
// retrieval.Searcher.
type contextSearcher interface {
	Search(ctx context.Context, query, template string, topK int) ([]model.RetrievedParagraph, error)
}

// auditReader reads stored analyses. Satisfied by store.Store.
type auditReader interface {
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, filter store.AnalysisFilter) ([]model.Analysis, error)
}

// server bundles the dependencies behind the HTTP handlers.
type server struct {
	analyzer analysisRunner
	searcher contextSearcher
	audits   auditReader
	renderer *render.Renderer
	topK     int

	// breakerState, when set, surfaces the LLM circuit state on /health.
	breakerState func() resilience.CircuitState
}

// newRouter builds the HTTP API: health, analyze, retrieve, render, and the
// audit trail.
func newRouter(s *server) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/retrieve", s.handleRetrieve)
		r.Post("/render", s.handleRender)
		r.Get("/audit", s.handleAuditList)
		r.Get("/audit/{id}", s.handleAuditGet)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if s.breakerState != nil {
		body["llm_circuit"] = s.breakerState().String()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyze.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	analysis, err := s.analyzer.Run(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// retrieveRequest mirrors the retrieve endpoint's JSON body.
type retrieveRequest struct {
	Query    string `json:"query"`
	Template string `json:"template"`
	TopK     int    `json:"top_k"`
}

// retrieveResponse is the retrieve endpoint's JSON envelope.
type retrieveResponse struct {
	Query    string                     `json:"query"`
	Template string                     `json:"template"`
	Results  []model.RetrievedParagraph `json:"results"`
	Count    int                        `json:"count"`
}

func (s *server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query is required"))
		return
	}
	if req.Template == "" {
		req.Template = model.TemplateC0100
	}
	if req.TopK == 0 {
		req.TopK = s.topK
	}

	results, err := s.searcher.Search(r.Context(), req.Query, req.Template, req.TopK)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, retrieveResponse{
		Query:    req.Query,
		Template: req.Template,
		Results:  results,
		Count:    len(results),
	})
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	var result model.AnalysisResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if len(result.Fields) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("fields are required"))
		return
	}

	html, err := s.renderer.HTML(&result)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

// auditListResponse is the audit listing envelope.
type auditListResponse struct {
	Count int              `json:"count"`
	Logs  []model.Analysis `json:"logs"`
}

func (s *server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		limit = n
	}

	analyses, err := s.audits.ListAnalyses(r.Context(), store.AnalysisFilter{
		Template: r.URL.Query().Get("template"),
		Limit:    limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auditListResponse{Count: len(analyses), Logs: analyses})
}

func (s *server) handleAuditGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	analysis, err := s.audits.GetAnalysis(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if analysis == nil {
		writeJSON(w, http.StatusNotFound, errorBody(fmt.Sprintf("audit record not found: %s", id)))
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps a pipeline failure to an HTTP status: invalid requests are
// 400, unparseable model answers 422, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, analyze.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, extract.ErrUnparseable):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody(err.Error()))
}
