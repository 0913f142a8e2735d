package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/averith/murmur/pkg/engine"
	"github.com/averith/murmur/pkg/state"
)

// TurnService is the part of the engine the server drives.
type TurnService interface {
	StartSession(ctx context.Context, params engine.StartParams) (*engine.StartResponse, error)
	Turn(ctx context.Context, st *state.SessionState, audio []byte) (*engine.TurnResponse, error)
}

// Server is the turn HTTP server
type Server struct {
	options        Options
	server         *http.Server
	service        TurnService
	rateLimiter    *RateLimiter
	metricsHandler http.Handler
	logger         zerolog.Logger
	startTime      time.Time
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates a new turn server
func NewServer(options Options, service TurnService, metricsHandler http.Handler, logger zerolog.Logger) (*Server, error) {
	if options.Port == 0 {
		options.Port = 8080
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = 100
	}
	if options.RequestTimeout == 0 {
		options.RequestTimeout = 90 * time.Second
	}
	if options.MaxUploadBytes == 0 {
		options.MaxUploadBytes = 16 << 20
	}

	if service == nil {
		return nil, fmt.Errorf("turn service is required")
	}

	s := &Server{
		options:        options,
		service:        service,
		rateLimiter:    NewRateLimiter(options.RateLimitPerMinute),
		metricsHandler: metricsHandler,
		logger:         logger,
		startTime:      time.Now(),
	}

	return s, nil
}

// Start starts the server and blocks until it shuts down.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/start-session", s.withGuards(s.handleStartSession))
	mux.HandleFunc("/chat-with-voice", s.withGuards(s.handleTurn))
	if s.metricsHandler != nil {
		mux.Handle("/metrics", s.metricsHandler)
	}

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: mux,
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting turn server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start turn server: %w", err)
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down turn server")

	// Wait for in-flight requests with timeout
	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	s.rateLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown turn server: %w", err)
	}

	s.logger.Info().Msg("Turn server stopped")
	return nil
}

// withGuards wraps a handler with shutdown, in-flight and rate limit checks.
func (s *Server) withGuards(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}
		s.shutdownMu.RUnlock()

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()

		ip := s.getClientIP(r)
		if !s.rateLimiter.Allow(ip) {
			retryAfter := s.rateLimiter.RetryAfter(ip)
			s.logger.Warn().
				Str("ip", ip).
				Str("path", r.URL.Path).
				Int("retryAfter", retryAfter).
				Msg("Rate limit exceeded")

			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next(w, r)
	}
}

// getClientIP extracts the client IP from the request
func (s *Server) getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
