package handlers

import (
	"context"
	"net/http"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/http/middleware"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/usecase"
)

type AuthService interface {
	Login(ctx context.Context, input usecase.LoginInput) (*usecase.LoginOutput, error)
	Register(ctx context.Context, input usecase.RegisterAdminInput, authenticated bool) (*entity.AdminUser, error)
	Me(ctx context.Context, email string) (*entity.AdminUser, error)
}

type AuthHandler struct {
	Auth AuthService
}

func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input usecase.LoginInput
	if err := decodeJSON(r, &input); err != nil {
		writeMessage(w, http.StatusBadRequest, usecase.CodeValidation, "Invalid JSON")
		return
	}

	out, err := h.Auth.Login(r.Context(), input)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Register precisa de token, exceto enquanto nenhum admin existir.
// A rota passa por OptionalAuth; a decisão fica no caso de uso.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input usecase.RegisterAdminInput
	if err := decodeJSON(r, &input); err != nil {
		writeMessage(w, http.StatusBadRequest, usecase.CodeValidation, "Invalid JSON")
		return
	}

	_, authenticated := middleware.AdminEmail(r.Context())
	admin, err := h.Auth.Register(r.Context(), input, authenticated)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, admin)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.AdminEmail(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, usecase.CodeUnauthorized, "Token inválido ou ausente")
		return
	}

	admin, err := h.Auth.Me(r.Context(), email)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, admin)
}
