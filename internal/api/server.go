package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/legistruct/internal/config"
	"github.com/dgallion1/legistruct/internal/export"
	"github.com/dgallion1/legistruct/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for legistruct.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	policy       export.DuplicatePolicy
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. policy resolves
// duplicate article ids in flat responses.
func NewServer(orch *pipeline.Orchestrator, policy export.DuplicatePolicy, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		orchestrator: orch,
		policy:       policy,
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
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/parse", s.handleParse)
		r.Post("/api/parse/batch", s.handleBatchParse)
		r.Get("/api/parse/{jobID}/status", s.handleParseStatus)
		r.Get("/api/stats/parse", s.handleParseStats)

		r.Route("/api/documents/{jobID}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Get("/articles/{articleID}", s.handleGetArticle)
			r.Get("/diagnostics", s.handleDiagnostics)
			r.Get("/files", s.handleListFiles)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
