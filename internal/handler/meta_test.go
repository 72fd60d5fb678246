package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codeboxhq/codebox/internal/meta"
)

// fakeText serves one canned response, or an error, for every model.
type fakeText struct {
	output string
	err    error
}

func (f *fakeText) GenerateText(_ context.Context, _, _ string) (string, error) {
	return f.output, f.err
}

const goodModelOutput = `{"meta_title": "T", "meta_description": "D", "meta_keywords": ["k"]}`

func newTestMetaHandler(text meta.TextGenerator, limit int) *MetaHandler {
	logger := slog.New(slog.DiscardHandler)
	return NewMetaHandler(
		meta.NewGenerator(text, logger),
		meta.NewLimiter(limit, time.Minute),
		logger,
	)
}

func postGenerate(h *MetaHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/generate-meta", strings.NewReader(body))
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	rec := httptest.NewRecorder()
	h.HandleGenerate(rec, req)
	return rec
}

const validBody = `{"title": "Binary search", "language": "go", "content": "func f() {}"}`

// A server without a Gemini key keeps the route but answers with a clear
// misconfiguration error.
func TestHandleGenerate_NotConfigured(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	h := NewMetaHandler(nil, meta.NewLimiter(10, time.Minute), logger)

	rec := postGenerate(h, validBody)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not configured") {
		t.Errorf("body = %s, want a not-configured message", rec.Body.String())
	}
}

func TestHandleGenerate_Success(t *testing.T) {
	h := newTestMetaHandler(&fakeText{output: goodModelOutput}, 10)

	rec := postGenerate(h, validBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	for _, want := range []string{`"success":true`, `"meta_title":"T"`, `"model_used":"gemini-2.0-flash"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
}

func TestHandleGenerate_InvalidInput(t *testing.T) {
	h := newTestMetaHandler(&fakeText{output: goodModelOutput}, 10)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", "{nope"},
		{"missing title", `{"content": "func f() {}"}`},
		{"short title", `{"title": "Hey", "content": "func f() {}"}`},
		{"missing content", `{"title": "Binary search"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postGenerate(h, tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleGenerate_RateLimited(t *testing.T) {
	h := newTestMetaHandler(&fakeText{output: goodModelOutput}, 2)

	postGenerate(h, validBody)
	postGenerate(h, validBody)

	rec := postGenerate(h, validBody)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rate_limited") {
		t.Errorf("body = %s, want rate_limited error type", rec.Body.String())
	}
}

func TestHandleGenerate_AllModelsExhausted(t *testing.T) {
	quota := errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")
	h := newTestMetaHandler(&fakeText{err: quota}, 10)

	rec := postGenerate(h, validBody)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleGenerate_HardFailureIs500(t *testing.T) {
	h := newTestMetaHandler(&fakeText{err: errors.New("connection reset")}, 10)

	rec := postGenerate(h, validBody)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Errorf("body leaks the internal error: %s", rec.Body.String())
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"9.9.9.9", "10.0.0.1:1234", "9.9.9.9"},
		{"9.9.9.9, 10.0.0.2", "10.0.0.1:1234", "9.9.9.9"},
		{"", "10.0.0.1:1234", "10.0.0.1"},
	}

	for i, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = tt.remoteAddr
		if tt.forwarded != "" {
			req.Header.Set("X-Forwarded-For", tt.forwarded)
		}
		if got := clientIP(req); got != tt.want {
			t.Errorf("case %d: clientIP = %q, want %q", i, got, tt.want)
		}
	}
}

// Distinct clients get distinct budgets even through the same handler.
func TestHandleGenerate_PerClientBudget(t *testing.T) {
	h := newTestMetaHandler(&fakeText{output: goodModelOutput}, 1)

	for i, ip := range []string{"1.1.1.1", "2.2.2.2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/generate-meta", strings.NewReader(validBody))
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		h.HandleGenerate(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("client %d: status = %d, want 200", i, rec.Code)
		}
	}
}
