package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/usecase"
)

type stubCreator struct{ calls int }

func (c *stubCreator) Execute(ctx context.Context, input usecase.CreateLeadInput) (*usecase.CreateLeadOutput, error) {
	c.calls++
	return &usecase.CreateLeadOutput{Lead: &entity.Lead{Fonte: "landing_page"}}, nil
}

func captureFrom(h *LeadHandler, remote, xff string) int {
	req := httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(`{}`))
	req.RemoteAddr = remote
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rec := httptest.NewRecorder()
	h.CaptureLead(rec, req)
	return rec.Code
}

// ============ TESTES DE IP DO CLIENTE ============

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	req.Header.Set("X-Real-IP", "198.51.100.3")

	assert.Equal(t, "10.0.0.1", getClientIP(req, false))
	assert.Equal(t, "203.0.113.7", getClientIP(req, true))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "198.51.100.3", getClientIP(req, true))

	req.RemoteAddr = "sem-porta"
	assert.Equal(t, "sem-porta", getClientIP(req, false))
}

func TestCaptureLead_SpoofedForwardedForDoesNotBypassLimit(t *testing.T) {
	creator := &stubCreator{}
	h := NewLeadHandler(creator, nil, nil, NewRateLimiter(2, time.Minute))

	assert.Equal(t, http.StatusCreated, captureFrom(h, "10.0.0.1:1000", "1.1.1.1"))
	assert.Equal(t, http.StatusCreated, captureFrom(h, "10.0.0.1:1001", "2.2.2.2"))
	assert.Equal(t, http.StatusTooManyRequests, captureFrom(h, "10.0.0.1:1002", "3.3.3.3"))
	assert.Equal(t, 2, creator.calls)

	// atrás de proxy confiável cada cliente tem sua cota
	trusted := NewLeadHandler(creator, nil, nil, NewRateLimiter(1, time.Minute))
	trusted.TrustProxyHeaders = true
	assert.Equal(t, http.StatusCreated, captureFrom(trusted, "10.0.0.1:1000", "1.1.1.1"))
	assert.Equal(t, http.StatusCreated, captureFrom(trusted, "10.0.0.1:1000", "2.2.2.2"))
	assert.Equal(t, http.StatusTooManyRequests, captureFrom(trusted, "10.0.0.1:1000", "1.1.1.1"))
}

// ============ TESTES DE RATE LIMITER ============

func TestRateLimiter_SweepRemovesStaleVisitors(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(90 * time.Second)
	rl.Allow("b")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, rl.Sweep(), "só b continua dentro de duas janelas")
	_, ok := rl.visitors["b"]
	assert.True(t, ok)
}

func TestRateLimiter_RunStopsOnCancel(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		rl.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "limpeza do rate limiter não parou")
	}
}
