package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/usecase"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Code: code, Message: message})
}

func statusForCode(code string) int {
	switch code {
	case usecase.CodeValidation, usecase.CodeConversion:
		return http.StatusBadRequest
	case usecase.CodeUnauthorized:
		return http.StatusUnauthorized
	case usecase.CodeNotFound:
		return http.StatusNotFound
	case usecase.CodeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeErrorResponse traduz DomainError para 4xx; o resto vira 500 sem
// vazar detalhes internos.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if code := usecase.DomainCode(err); code != "" {
		writeMessage(w, statusForCode(code), code, err.Error())
		return
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msg("❌ Erro interno")
	writeMessage(w, http.StatusInternalServerError, usecase.CodeUpstream, "Erro interno")
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
