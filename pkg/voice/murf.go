package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

const murfGenerateURL = "https://api.murf.ai/v1/speech/generate"

// MurfSynthesizer generates speech through the Murf API. A non-200
// response triggers exactly one retry with the fallback voice before the
// failure is reported.
type MurfSynthesizer struct {
	apiKey        string
	voiceID       string
	fallbackVoice string
	style         string
	locale        string
	generateURL   string
	httpClient    *http.Client
	logger        zerolog.Logger
	onFallback    func()
}

// MurfConfig configures the Murf synthesizer.
type MurfConfig struct {
	APIKey        string
	VoiceID       string
	FallbackVoice string
	Style         string
	Locale        string
}

// NewMurf creates a Murf synthesizer.
func NewMurf(cfg MurfConfig, logger zerolog.Logger) *MurfSynthesizer {
	if cfg.VoiceID == "" {
		cfg.VoiceID = "en-US-marcus"
	}
	if cfg.FallbackVoice == "" {
		cfg.FallbackVoice = "en-UK-ruby"
	}
	if cfg.Style == "" {
		cfg.Style = "Promo"
	}
	if cfg.Locale == "" {
		cfg.Locale = "en-US"
	}

	return &MurfSynthesizer{
		apiKey:        cfg.APIKey,
		voiceID:       cfg.VoiceID,
		fallbackVoice: cfg.FallbackVoice,
		style:         cfg.Style,
		locale:        cfg.Locale,
		generateURL:   murfGenerateURL,
		httpClient:    &http.Client{},
		logger:        logger,
	}
}

// NewMurfWithURL creates a synthesizer against a custom API endpoint.
// Used by tests.
func NewMurfWithURL(cfg MurfConfig, url string, logger zerolog.Logger) *MurfSynthesizer {
	m := NewMurf(cfg, logger)
	m.generateURL = url
	return m
}

// OnFallback registers a hook invoked each time the fallback voice is
// tried. Used to count fallbacks without coupling this client to the
// metrics registry.
func (m *MurfSynthesizer) OnFallback(hook func()) {
	m.onFallback = hook
}

// Name returns the provider identifier.
func (m *MurfSynthesizer) Name() string {
	return "murf"
}

type murfRequest struct {
	Text              string `json:"text"`
	VoiceID           string `json:"voice_id"`
	Style             string `json:"style,omitempty"`
	MultiNativeLocale string `json:"multiNativeLocale,omitempty"`
}

type murfResponse struct {
	AudioFile string `json:"audioFile"`
}

// Synthesize converts text to an audio URL, retrying once with the
// fallback voice on a non-200 response.
func (m *MurfSynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	handle, err := m.generate(ctx, text, m.voiceID)
	if err == nil {
		return handle, nil
	}

	m.logger.Warn().
		Err(err).
		Str("voice", m.voiceID).
		Str("fallback", m.fallbackVoice).
		Msg("Synthesis failed, retrying with fallback voice")
	if m.onFallback != nil {
		m.onFallback()
	}

	return m.generate(ctx, text, m.fallbackVoice)
}

func (m *MurfSynthesizer) generate(ctx context.Context, text, voiceID string) (string, error) {
	payload, err := json.Marshal(murfRequest{
		Text:              text,
		VoiceID:           voiceID,
		Style:             m.style,
		MultiNativeLocale: m.locale,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.generateURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create synthesis request: %w", err)
	}
	req.Header.Set("api-key", m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read synthesis response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("synthesis returned status %d", resp.StatusCode)
	}

	var parsed murfResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse synthesis response: %w", err)
	}
	if parsed.AudioFile == "" {
		return "", fmt.Errorf("synthesis response carried no audio file")
	}

	return parsed.AudioFile, nil
}
