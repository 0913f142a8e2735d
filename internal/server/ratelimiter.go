package server

import (
	"sync"
	"time"
)

// RateLimiter implements per-IP rate limiting with a sliding one-minute window.
type RateLimiter struct {
	limits         map[string]*rateLimitState
	maxPerMin      int
	mu             sync.RWMutex
	cleanupEvery   time.Duration
	stopCleanup    chan struct{}
	cleanupRunning bool
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxRequestsPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		limits:       make(map[string]*rateLimitState),
		maxPerMin:    maxRequestsPerMinute,
		cleanupEvery: 5 * time.Minute,
		stopCleanup:  make(chan struct{}),
	}

	go rl.startCleanup()

	return rl
}

// Allow reports whether a request from the given IP is within the limit,
// recording it when allowed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixMilli()

	st, exists := rl.limits[ip]
	if !exists {
		st = &rateLimitState{}
		rl.limits[ip] = st
	}

	st.requests = trimWindow(st.requests, now)

	if len(st.requests) >= rl.maxPerMin {
		return false
	}

	st.requests = append(st.requests, now)
	return true
}

// RetryAfter returns the number of seconds until the oldest request in the
// window expires.
func (rl *RateLimiter) RetryAfter(ip string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	st, exists := rl.limits[ip]
	if !exists || len(st.requests) == 0 {
		return 0
	}

	now := time.Now().UnixMilli()
	retryAfterMs := 60000 - (now - st.requests[0])
	if retryAfterMs < 0 {
		return 0
	}

	return int((retryAfterMs + 999) / 1000)
}

func trimWindow(requests []int64, now int64) []int64 {
	valid := requests[:0]
	for _, ts := range requests {
		if now-ts < 60000 {
			valid = append(valid, ts)
		}
	}
	return valid
}

func (rl *RateLimiter) startCleanup() {
	rl.mu.Lock()
	if rl.cleanupRunning {
		rl.mu.Unlock()
		return
	}
	rl.cleanupRunning = true
	rl.mu.Unlock()

	ticker := time.NewTicker(rl.cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixMilli()

	for ip, st := range rl.limits {
		st.requests = trimWindow(st.requests, now)
		if len(st.requests) == 0 {
			delete(rl.limits, ip)
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	close(rl.stopCleanup)
}
