package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/averith/murmur/pkg/engine"
	"github.com/averith/murmur/pkg/intent"
	"github.com/averith/murmur/pkg/state"
)

const rootBanner = `<html><body><h1>Murmur</h1><p>Voice turn server is running.</p></body></html>`

// handleRoot serves a plain HTML banner so a browser hit confirms the
// server is up.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, rootBanner)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Uptime:    time.Since(s.startTime).Seconds(),
		Timestamp: time.Now().UnixMilli(),
	})
}

// handleStartSession creates a fresh session for the requested variant.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", false)
		return
	}

	variant := state.Variant(req.Variant)
	if !state.ValidVariant(variant) {
		s.writeError(w, http.StatusBadRequest, "unknown variant: "+req.Variant, false)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.options.RequestTimeout)
	defer cancel()

	resp, err := s.service.StartSession(ctx, engine.StartParams{
		Variant: variant,
		CaseID:  req.CaseID,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("variant", req.Variant).Msg("Failed to start session")
		s.writeError(w, http.StatusInternalServerError, "failed to start session", false)
		return
	}

	s.logger.Info().
		Str("variant", req.Variant).
		Str("session_id", resp.State.SessionID).
		Msg("Session started")

	s.writeJSON(w, http.StatusOK, resp)
}

// handleTurn runs one voice turn: multipart audio under "file" plus the
// prior session state under "current_state".
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startTime := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.options.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.options.MaxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form", false)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "audio file is required", false)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read audio file", false)
		return
	}

	rawState := r.FormValue("current_state")
	if rawState == "" {
		s.writeError(w, http.StatusBadRequest, "current_state is required", false)
		return
	}

	st, err := state.Parse([]byte(rawState))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid session state: "+err.Error(), false)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.options.RequestTimeout)
	defer cancel()

	resp, err := s.service.Turn(ctx, st, audio)

	duration := time.Since(startTime).Milliseconds()

	if err != nil {
		status, message := turnErrorStatus(err)
		s.logger.Warn().
			Err(err).
			Str("variant", string(st.Variant)).
			Str("session_id", st.SessionID).
			Int64("duration", duration).
			Msg("Turn failed")
		s.writeError(w, status, message, engine.IsRetryable(err))
		return
	}

	s.logger.Info().
		Str("variant", string(st.Variant)).
		Str("session_id", st.SessionID).
		Str("phase", string(resp.State.Phase)).
		Int64("duration", duration).
		Msg("Turn completed")

	s.writeJSON(w, http.StatusOK, resp)
}

// turnErrorStatus maps turn failures to HTTP statuses. Retryable
// conditions get 4xx/503 so clients know the state they hold is still
// good.
func turnErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrNoSpeech):
		return http.StatusUnprocessableEntity, "no speech detected, please try again"
	case errors.Is(err, engine.ErrBadState):
		return http.StatusBadRequest, "invalid session state"
	case errors.Is(err, engine.ErrTranscriber):
		return http.StatusBadGateway, "transcription unavailable"
	case errors.Is(err, intent.ErrUnavailable):
		return http.StatusServiceUnavailable, "assistant unavailable, please retry"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, retryable bool) {
	s.writeJSON(w, status, errorResponse{Error: message, Retryable: retryable})
}
