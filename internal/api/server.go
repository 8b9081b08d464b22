package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kenshulab/reportchat/internal/chat"
	"github.com/kenshulab/reportchat/internal/config"
	"github.com/kenshulab/reportchat/internal/llm"
	"github.com/kenshulab/reportchat/internal/session"
)

// Server is the HTTP API server for reportchat.
type Server struct {
	router     chi.Router
	store      *session.Store
	controller *chat.Controller
	openai     *llm.OpenAIClient
	log        *slog.Logger
	cfg        config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(store *session.Store, controller *chat.Controller, openai *llm.OpenAIClient, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:      store,
		controller: controller,
		openai:     openai,
		log:        log,
		cfg:        cfg,
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

	// API endpoints, authenticated only when a service key is set.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/sessions", s.handleCreateSession)
		r.Get("/api/sessions/{sessionID}", s.handleGetSession)
		r.Delete("/api/sessions/{sessionID}", s.handleDeleteSession)

		r.Post("/api/sessions/{sessionID}/document", s.handleUploadDocument)
		r.Post("/api/sessions/{sessionID}/chat", s.handleChat)
		r.Get("/api/sessions/{sessionID}/report", s.handleReport)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
