package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/http/middleware"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/usecase"
)

type LeadCreator interface {
	Execute(ctx context.Context, input usecase.CreateLeadInput) (*usecase.CreateLeadOutput, error)
}

type LeadUpdater interface {
	Execute(ctx context.Context, id string, input usecase.UpdateLeadInput) (*usecase.UpdateLeadOutput, error)
}

type LeadReader interface {
	FindByID(ctx context.Context, id string) (*entity.Lead, error)
	List(ctx context.Context) ([]*entity.Lead, error)
}

type LeadHandler struct {
	createUC    LeadCreator
	updateUC    LeadUpdater
	leads       LeadReader
	rateLimiter *RateLimiter

	// TrustProxyHeaders usa X-Forwarded-For / X-Real-IP como IP do cliente.
	// Desligado, o rate limit usa só RemoteAddr.
	TrustProxyHeaders bool
}

func NewLeadHandler(createUC LeadCreator, updateUC LeadUpdater, leads LeadReader, limiter *RateLimiter) *LeadHandler {
	if limiter == nil {
		limiter = NewRateLimiter(10, time.Minute) // 10 req/min por IP
	}
	return &LeadHandler{
		createUC:    createUC,
		updateUC:    updateUC,
		leads:       leads,
		rateLimiter: limiter,
	}
}

func (h *LeadHandler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	clientIP := getClientIP(r, h.TrustProxyHeaders)
	if !h.rateLimiter.Allow(clientIP) {
		middleware.RecordRateLimited()
		writeMessage(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.")
		return
	}

	var input usecase.CreateLeadInput
	if err := decodeJSON(r, &input); err != nil {
		writeMessage(w, http.StatusBadRequest, usecase.CodeValidation, "Invalid JSON")
		return
	}

	out, err := h.createUC.Execute(r.Context(), input)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}

	middleware.RecordLeadCaptured(out.Lead.Fonte)
	writeJSON(w, http.StatusCreated, out)
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	leads, err := h.leads.List(r.Context())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	if leads == nil {
		leads = []*entity.Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.leads.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			writeMessage(w, http.StatusNotFound, usecase.CodeNotFound, "Lead não encontrado")
			return
		}
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateLeadInput
	if err := decodeJSON(r, &input); err != nil {
		writeMessage(w, http.StatusBadRequest, usecase.CodeValidation, "Invalid JSON")
		return
	}
	out, err := h.updateUC.Execute(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// getClientIP só lê cabeçalhos de proxy quando trustProxy está ligado; o
// primeiro endereço do X-Forwarded-For é o cliente original.
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	now      func() time.Time
}

type visitor struct {
	count     int
	lastReset time.Time
}

// NewRateLimiter não inicia a limpeza de visitantes; chame Run.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	now := rl.now()

	if !exists {
		rl.visitors[ip] = &visitor{count: 1, lastReset: now}
		return true
	}

	if now.Sub(v.lastReset) > rl.window {
		v.count = 1
		v.lastReset = now
		return true
	}

	v.count++
	return v.count <= rl.limit
}

// Run limpa visitantes antigos a cada interval até ctx ser cancelado.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// Sweep remove visitantes sem acesso há mais de duas janelas e devolve
// quantos restaram.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastReset) > rl.window*2 {
			delete(rl.visitors, ip)
		}
	}
	return len(rl.visitors)
}
