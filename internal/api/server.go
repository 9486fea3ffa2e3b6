// Package api exposes the chat pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"botforge/internal/common/config"
	"botforge/internal/common/logger"
	"botforge/internal/models"
)

// ChatService is the pipeline surface the endpoint needs.
type ChatService interface {
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	Welcome(ctx context.Context, req models.WelcomeRequest) (*models.ChatResponse, error)
	Transcribe(ctx context.Context, audio []byte) (models.Transcription, error)
	VoiceChat(ctx context.Context, orgID string, audio []byte, sessionID, language string) (*models.VoiceChatResponse, error)
	History(ctx context.Context, req models.HistoryRequest) ([]models.Message, error)
}

// ReadinessCheck reports whether a backing dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	service        ChatService
	validate       *validator.Validate
	cfg            config.ServerConfig
	requestTimeout time.Duration
	checks         map[string]ReadinessCheck
	logger         logger.Logger
	httpServer     *http.Server
}

func NewServer(service ChatService, cfg config.ServerConfig, requestTimeout time.Duration, log logger.Logger) *Server {
	s := &Server{
		service:        service,
		validate:       newValidator(),
		cfg:            cfg,
		requestTimeout: requestTimeout,
		checks:         map[string]ReadinessCheck{},
		logger:         log.WithFields(map[string]interface{}{"component": "http-api"}),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Routes(),
		ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.WriteTimeout),
	}
	return s
}

// AddReadinessCheck registers a dependency probed by /ready.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.checks[name] = check
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/chat/welcome", s.handleWelcome)
	mux.HandleFunc("POST /api/chat/voice", s.handleVoiceChat)
	mux.HandleFunc("GET /api/chat/history", s.handleHistory)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.recoverer(mux)
}

// ListenAndServe blocks until the server stops. http.ErrServerClosed is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", map[string]interface{}{"address": s.cfg.Address})
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.requestTimeout)
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in http handler", map[string]interface{}{
					"path":  r.URL.Path,
					"panic": rec,
				})
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error", Code: "INTERNAL_ERROR"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failing := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failing[name] = err.Error()
		}
	}
	if len(failing) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not_ready", "failing": failing})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
