// Package meta generates SEO metadata for snippets with Google's Gemini
// models, behind a per-client rate limit and a model fallback chain.
package meta

import (
	"sync"
	"time"
)

// Rate limit defaults: 10 generation requests per minute per client key.
const (
	DefaultRateLimit  = 10
	DefaultRateWindow = time.Minute
)

type window struct {
	start time.Time
	count int
}

// Limiter is a fixed-window request counter keyed by client (the caller
// picks the key — typically the forwarded client IP). State is process-local
// and in-memory: restarting the server resets every window, and replicas
// each enforce their own budget.
//
// Fixed-window means the count resets at window boundaries rather than
// draining continuously — a client can burst up to 2x the limit across a
// boundary, which is acceptable for an abuse guard.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]window
	now     func() time.Time
}

// NewLimiter returns a limiter allowing limit requests per window per key.
func NewLimiter(limit int, windowDur time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  windowDur,
		clients: make(map[string]window),
		now:     time.Now,
	}
}

// NewLimiterWithClock injects a clock, for tests.
func NewLimiterWithClock(limit int, windowDur time.Duration, now func() time.Time) *Limiter {
	l := NewLimiter(limit, windowDur)
	l.now = now
	return l
}

// Allow records a request for key and reports whether it fits in the
// current window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.clients[key] = window{start: now, count: 1}
		l.pruneLocked(now)
		return true
	}

	if w.count >= l.limit {
		return false
	}
	w.count++
	l.clients[key] = w
	return true
}

// pruneLocked drops keys whose window has lapsed so the map doesn't grow
// with every client ever seen. Called on the window-reset path, so it runs
// rarely relative to Allow.
func (l *Limiter) pruneLocked(now time.Time) {
	for key, w := range l.clients {
		if now.Sub(w.start) >= l.window {
			delete(l.clients, key)
		}
	}
}
