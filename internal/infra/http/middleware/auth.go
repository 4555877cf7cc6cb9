package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type ctxKey int

const adminEmailKey ctxKey = iota

type TokenParser interface {
	Parse(token string) (string, error)
}

// WithAdminEmail grava o subject do token no contexto.
func WithAdminEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, adminEmailKey, email)
}

func AdminEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(adminEmailKey).(string)
	return email, ok && email != ""
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"code":    "UNAUTHORIZED",
		"message": "Token inválido ou ausente",
	})
}

// RequireAuth exige um Bearer JWT válido.
func RequireAuth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w)
				return
			}
			email, err := parser.Parse(token)
			if err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdminEmail(r.Context(), email)))
		})
	}
}

// OptionalAuth anexa o admin quando o token é válido e segue em frente
// mesmo sem ele. Um token presente mas inválido ainda é rejeitado.
func OptionalAuth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			email, err := parser.Parse(token)
			if err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdminEmail(r.Context(), email)))
		})
	}
}
