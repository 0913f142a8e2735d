package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	assemblyAIBaseURL = "https://api.assemblyai.com/v2"

	transcriptPollInterval = 500 * time.Millisecond
)

// AssemblyAITranscriber transcribes audio through the AssemblyAI API:
// upload the bytes, create a transcript job, poll until it settles.
// A completed job with no detected speech yields "", nil.
type AssemblyAITranscriber struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewAssemblyAI creates an AssemblyAI transcriber.
func NewAssemblyAI(apiKey string, logger zerolog.Logger) *AssemblyAITranscriber {
	return &AssemblyAITranscriber{
		apiKey:     apiKey,
		baseURL:    assemblyAIBaseURL,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// NewAssemblyAIWithBaseURL creates a transcriber against a custom API
// endpoint. Used by tests.
func NewAssemblyAIWithBaseURL(apiKey, baseURL string, logger zerolog.Logger) *AssemblyAITranscriber {
	t := NewAssemblyAI(apiKey, logger)
	t.baseURL = baseURL
	return t
}

// Name returns the provider identifier.
func (t *AssemblyAITranscriber) Name() string {
	return "assemblyai"
}

type transcriptJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe uploads the audio and polls the transcript job until it
// completes or the context expires.
func (t *AssemblyAITranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	uploadURL, err := t.upload(ctx, audio)
	if err != nil {
		return "", err
	}

	job, err := t.createTranscript(ctx, uploadURL)
	if err != nil {
		return "", err
	}

	for {
		switch job.Status {
		case "completed":
			return job.Text, nil
		case "error":
			return "", fmt.Errorf("transcription failed: %s", job.Error)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("transcription timed out: %w", ctx.Err())
		case <-time.After(transcriptPollInterval):
		}

		job, err = t.pollTranscript(ctx, job.ID)
		if err != nil {
			return "", err
		}
	}
}

func (t *AssemblyAITranscriber) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var parsed struct {
		UploadURL string `json:"upload_url"`
	}
	if err := t.do(req, &parsed); err != nil {
		return "", fmt.Errorf("audio upload failed: %w", err)
	}
	if parsed.UploadURL == "" {
		return "", fmt.Errorf("upload response carried no url")
	}

	return parsed.UploadURL, nil
}

func (t *AssemblyAITranscriber) createTranscript(ctx context.Context, audioURL string) (*transcriptJob, error) {
	payload, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/transcript", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript request: %w", err)
	}
	req.Header.Set("authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var job transcriptJob
	if err := t.do(req, &job); err != nil {
		return nil, fmt.Errorf("transcript creation failed: %w", err)
	}

	return &job, nil
}

func (t *AssemblyAITranscriber) pollTranscript(ctx context.Context, id string) (*transcriptJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/transcript/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll request: %w", err)
	}
	req.Header.Set("authorization", t.apiKey)

	var job transcriptJob
	if err := t.do(req, &job); err != nil {
		return nil, fmt.Errorf("transcript poll failed: %w", err)
	}

	return &job, nil
}

func (t *AssemblyAITranscriber) do(req *http.Request, out any) error {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
