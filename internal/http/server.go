package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aicarousel/gateway/internal/http/middleware"
	"github.com/aicarousel/gateway/internal/observability"
)

// ServerConfig holds the listener and timeout settings for Server.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server represents the HTTP server.
type Server struct {
	config      ServerConfig
	handler     *Handler
	admin       *AdminHandler
	middlewares middleware.Middleware
	srv         *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg ServerConfig,
	handler *Handler,
	admin *AdminHandler,
	middlewares middleware.Middleware,
) *Server {
	return &Server{
		config:      cfg,
		handler:     handler,
		admin:       admin,
		middlewares: middlewares,
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handler.HandleHealth)
	mux.HandleFunc("/v1/models", s.handler.HandleModelsList)
	mux.HandleFunc("/v1/models/", s.handler.HandleModelDetail)
	mux.HandleFunc("/v1/chat/completions", s.handler.HandleChatCompletions)
	mux.HandleFunc("/v1/messages/count_tokens", s.handler.HandleCountTokens)
	mux.HandleFunc("/v1/messages", s.handler.HandleMessages)
	mux.HandleFunc("/chat", s.handler.HandleRawChat)

	mux.HandleFunc("/v1/admin/keys", s.admin.HandleKeys)
	mux.HandleFunc("/v1/admin/keys/", s.admin.HandleKeyByID)
	mux.HandleFunc("/v1/admin/providers", s.admin.HandleProviders)
	mux.HandleFunc("/v1/admin/models", s.admin.HandleModels)

	return mux
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	handlerWithMiddleware := s.middlewares(s.routes())

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      handlerWithMiddleware,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	observability.FromContext(context.Background()).Info("starting HTTP server", observability.Int("port", s.config.Port))

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if s.srv == nil {
		return nil
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
