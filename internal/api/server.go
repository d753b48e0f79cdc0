package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/papersumm/internal/config"
	"github.com/dgallion1/papersumm/internal/llm"
	"github.com/dgallion1/papersumm/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for papersumm.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	client       *llm.AnthropicClient
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, client *llm.AnthropicClient, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		client:       client,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.PapersummAPIKey, s.log))

		r.Post("/api/summarize", s.handleSummarize)
		r.Get("/api/summarize/{jobID}/status", s.handleSummarizeStatus)
		r.Get("/api/summarize/{jobID}/report", s.handleSummarizeReport)
		r.Post("/api/summarize/batch", s.handleBatchSummarize)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
