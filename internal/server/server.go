// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/stream"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8787"

	// DefaultStreamTimeout caps a single generation.
	DefaultStreamTimeout = 30 * time.Second

	// DefaultSystemPrompt is used when a request carries no system instruction.
	DefaultSystemPrompt = "Ты дружелюбный AI-ассистент в мессенджере. Отвечай кратко и по делу, как в обычной переписке."

	// MaxRequestBodySize is the maximum size for a request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageCount is the maximum history length accepted.
	MaxMessageCount = 500

	// Version is the server version.
	Version = "0.1.0"
)

// Config configures the HTTP server.
type Config struct {
	Addr          string
	StreamTimeout time.Duration
	SystemPrompt  string
	RateLimit     float64
	RateBurst     int
	CORSOrigins   []string
	MaxBodyBytes  int64
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:          DefaultAddr,
		StreamTimeout: DefaultStreamTimeout,
		SystemPrompt:  DefaultSystemPrompt,
		RateLimit:     5,
		RateBurst:     10,
		CORSOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		MaxBodyBytes:  MaxRequestBodySize,
	}
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the generation HTTP server.
type Server struct {
	cfg     Config
	backend Backend
	logger  zerolog.Logger
	metrics *Metrics
	router  chi.Router
	server  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l.With().Str("component", "server").Logger() }
}

// WithMetrics replaces the metrics collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a server that generates replies with backend. Zero config
// fields take their defaults.
func New(cfg Config, backend Backend, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = def.StreamTimeout
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = def.SystemPrompt
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}

	s := &Server{
		cfg:     cfg,
		backend: backend,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(LoggingMiddleware(s.logger, s.metrics))
	r.Use(SecurityHeadersMiddleware())
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(RateLimitMiddleware(NewRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst)))
		}
		r.Post("/api/chat", s.handleChat)
	})

	s.router = r
}

// ============================================================================
// HANDLERS
// ============================================================================

var errBadRequest = errors.New("bad chat request")

func (s *Server) decodeChat(w http.ResponseWriter, r *http.Request) (stream.ChatRequest, error) {
	var req stream.ChatRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(req.Messages) == 0 {
		return req, fmt.Errorf("%w: no messages", errBadRequest)
	}
	if len(req.Messages) > MaxMessageCount {
		return req, fmt.Errorf("%w: %d messages exceeds %d", errBadRequest, len(req.Messages), MaxMessageCount)
	}
	for i, m := range req.Messages {
		if !m.Role.Valid() {
			return req, fmt.Errorf("%w: invalid role %q at message %d", errBadRequest, m.Role, i)
		}
	}
	return req, nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeChat(w, r)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rejecting chat request")
		s.metrics.streamErrors.WithLabelValues("before_first_token").Inc()
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	system := strings.TrimSpace(req.System)
	if system == "" {
		system = s.cfg.SystemPrompt
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.StreamTimeout)
	defer cancel()

	s.metrics.activeStreams.Inc()
	defer s.metrics.activeStreams.Dec()

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
	}
	writeFrame := func(f stream.Frame) error {
		if err := enc.Encode(f); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	tokens := 0
	err = s.backend.Generate(ctx, system, req.Messages, func(tok string) error {
		start()
		tokens++
		s.metrics.tokens.Inc()
		return writeFrame(stream.Frame{Content: tok})
	})
	if err != nil {
		log := s.logger.Warn().Err(err).Str("chat", req.ChatID).Int("tokens", tokens)
		if !started {
			log.Msg("generation failed before first token")
			s.metrics.streamErrors.WithLabelValues("before_first_token").Inc()
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		log.Msg("generation failed mid-stream")
		s.metrics.streamErrors.WithLabelValues("mid_stream").Inc()
		msg := "generation failed"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "generation timed out"
		}
		writeFrame(stream.Frame{Error: msg})
		return
	}

	start()
	writeFrame(stream.Frame{Done: true})
	s.logger.Debug().Str("chat", req.ChatID).Int("tokens", tokens).Msg("reply streamed")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": Version,
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Str("version", Version).Msg("server started")
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.StreamTimeout)
	defer cancel()
	s.logger.Info().Msg("server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
