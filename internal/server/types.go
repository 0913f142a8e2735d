package server

import "time"

// Options configures the HTTP server.
type Options struct {
	Host               string
	Port               int
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	MaxUploadBytes     int64
}

// startRequest is the /start-session payload.
type startRequest struct {
	Variant string `json:"variant"`
	CaseID  string `json:"case_id,omitempty"`
}

// errorResponse is the body sent for any failed request.
type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// healthResponse is the /health payload.
type healthResponse struct {
	Status    string  `json:"status"`
	Uptime    float64 `json:"uptime"`
	Timestamp int64   `json:"timestamp"`
}

// rateLimitState tracks request timestamps for one client IP.
type rateLimitState struct {
	requests []int64
}
