package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averith/murmur/pkg/engine"
	"github.com/averith/murmur/pkg/intent"
	"github.com/averith/murmur/pkg/state"
)

func TestHandleStartSession(t *testing.T) {
	t.Run("starts a commerce session", func(t *testing.T) {
		service := &stubService{
			startFn: func(ctx context.Context, params engine.StartParams) (*engine.StartResponse, error) {
				assert.Equal(t, state.VariantCommerce, params.Variant)
				return &engine.StartResponse{
					Reply: "welcome to the shop",
					State: state.New(params.Variant, "s1"),
				}, nil
			},
		}
		s := newTestServer(t, service)

		rec := httptest.NewRecorder()
		s.handleStartSession(rec, httptest.NewRequest(http.MethodPost, "/start-session",
			bytes.NewBufferString(`{"variant": "commerce"}`)))

		require.Equal(t, http.StatusOK, rec.Code)

		var body engine.StartResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "welcome to the shop", body.Reply)
		require.NotNil(t, body.State)
		assert.Equal(t, state.VariantCommerce, body.State.Variant)
	})

	t.Run("passes case id through", func(t *testing.T) {
		service := &stubService{
			startFn: func(ctx context.Context, params engine.StartParams) (*engine.StartResponse, error) {
				assert.Equal(t, "case-7", params.CaseID)
				return &engine.StartResponse{State: state.New(params.Variant, "s1")}, nil
			},
		}
		s := newTestServer(t, service)

		rec := httptest.NewRecorder()
		s.handleStartSession(rec, httptest.NewRequest(http.MethodPost, "/start-session",
			bytes.NewBufferString(`{"variant": "fraud_check", "case_id": "case-7"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown variant is 400", func(t *testing.T) {
		s := newTestServer(t, &stubService{})

		rec := httptest.NewRecorder()
		s.handleStartSession(rec, httptest.NewRequest(http.MethodPost, "/start-session",
			bytes.NewBufferString(`{"variant": "poker"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unknown variant")
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		s := newTestServer(t, &stubService{})

		rec := httptest.NewRecorder()
		s.handleStartSession(rec, httptest.NewRequest(http.MethodPost, "/start-session",
			bytes.NewBufferString("{not json")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service failure is 500", func(t *testing.T) {
		service := &stubService{
			startFn: func(ctx context.Context, params engine.StartParams) (*engine.StartResponse, error) {
				return nil, fmt.Errorf("boom")
			},
		}
		s := newTestServer(t, service)

		rec := httptest.NewRecorder()
		s.handleStartSession(rec, httptest.NewRequest(http.MethodPost, "/start-session",
			bytes.NewBufferString(`{"variant": "wellness"}`)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("get is rejected", func(t *testing.T) {
		s := newTestServer(t, &stubService{})

		rec := httptest.NewRecorder()
		s.handleStartSession(rec, httptest.NewRequest(http.MethodGet, "/start-session", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleTurn(t *testing.T) {
	priorState := func(t *testing.T) string {
		t.Helper()
		raw, err := json.Marshal(state.New(state.VariantCommerce, "s1"))
		require.NoError(t, err)
		return string(raw)
	}

	t.Run("completes a turn", func(t *testing.T) {
		service := &stubService{
			turnFn: func(ctx context.Context, st *state.SessionState, audio []byte) (*engine.TurnResponse, error) {
				assert.Equal(t, []byte("audio-bytes"), audio)
				assert.Equal(t, "s1", st.SessionID)
				return &engine.TurnResponse{
					Transcript: "show me hoodies",
					Reply:      "found one hoodie",
					State:      st,
				}, nil
			},
		}
		s := newTestServer(t, service)

		rec := httptest.NewRecorder()
		s.handleTurn(rec, multipartTurnRequest(t, []byte("audio-bytes"), priorState(t)))

		require.Equal(t, http.StatusOK, rec.Code)

		var body engine.TurnResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "show me hoodies", body.Transcript)
		assert.Equal(t, "found one hoodie", body.Reply)
	})

	t.Run("missing audio is 400", func(t *testing.T) {
		s := newTestServer(t, &stubService{})

		rec := httptest.NewRecorder()
		s.handleTurn(rec, multipartTurnRequest(t, nil, priorState(t)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "audio file is required")
	})

	t.Run("missing state is 400", func(t *testing.T) {
		s := newTestServer(t, &stubService{})

		rec := httptest.NewRecorder()
		s.handleTurn(rec, multipartTurnRequest(t, []byte("x"), ""))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "current_state is required")
	})

	t.Run("unknown variant in state is 400", func(t *testing.T) {
		s := newTestServer(t, &stubService{})

		rec := httptest.NewRecorder()
		s.handleTurn(rec, multipartTurnRequest(t, []byte("x"), `{"session_id": "s1", "variant": "poker"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid session state")
	})

	t.Run("no speech is 422 and retryable", func(t *testing.T) {
		service := &stubService{
			turnFn: func(ctx context.Context, st *state.SessionState, audio []byte) (*engine.TurnResponse, error) {
				return nil, engine.ErrNoSpeech
			},
		}
		s := newTestServer(t, service)

		rec := httptest.NewRecorder()
		s.handleTurn(rec, multipartTurnRequest(t, []byte("x"), priorState(t)))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Retryable)
	})

	t.Run("resolver outage is 503 and retryable", func(t *testing.T) {
		service := &stubService{
			turnFn: func(ctx context.Context, st *state.SessionState, audio []byte) (*engine.TurnResponse, error) {
				return nil, fmt.Errorf("%w: rate limited", intent.ErrUnavailable)
			},
		}
		s := newTestServer(t, service)

		rec := httptest.NewRecorder()
		s.handleTurn(rec, multipartTurnRequest(t, []byte("x"), priorState(t)))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Retryable)
	})

	t.Run("transcriber outage is 502", func(t *testing.T) {
		service := &stubService{
			turnFn: func(ctx context.Context, st *state.SessionState, audio []byte) (*engine.TurnResponse, error) {
				return nil, engine.ErrTranscriber
			},
		}
		s := newTestServer(t, service)

		rec := httptest.NewRecorder()
		s.handleTurn(rec, multipartTurnRequest(t, []byte("x"), priorState(t)))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("unexpected failure is 500 and not retryable", func(t *testing.T) {
		service := &stubService{
			turnFn: func(ctx context.Context, st *state.SessionState, audio []byte) (*engine.TurnResponse, error) {
				return nil, fmt.Errorf("disk full")
			},
		}
		s := newTestServer(t, service)

		rec := httptest.NewRecorder()
		s.handleTurn(rec, multipartTurnRequest(t, []byte("x"), priorState(t)))

		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Retryable)
	})
}
