package usecase

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors agrega os erros de um input. Vazio = válido.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

func ValidateCreateLeadInput(input CreateLeadInput) ValidationErrors {
	var errs ValidationErrors

	nome := strings.TrimSpace(input.Nome)
	if nome == "" {
		errs = append(errs, ValidationError{"nome", "is required"})
	} else if n := utf8.RuneCountInString(nome); n < 2 {
		errs = append(errs, ValidationError{"nome", "must have at least 2 characters"})
	} else if n > 100 {
		errs = append(errs, ValidationError{"nome", "must not exceed 100 characters"})
	}

	if strings.TrimSpace(input.Email) == "" {
		errs = append(errs, ValidationError{"email", "is required"})
	} else if !isValidEmail(input.Email) {
		errs = append(errs, ValidationError{"email", "is invalid"})
	}

	tel := strings.TrimSpace(input.Telefone)
	if tel == "" {
		errs = append(errs, ValidationError{"telefone", "is required"})
	} else if n := utf8.RuneCountInString(tel); n < 10 || n > 20 {
		errs = append(errs, ValidationError{"telefone", "must have between 10 and 20 characters"})
	}

	return errs
}

func ValidateUpdateLeadInput(input UpdateLeadInput) ValidationErrors {
	var errs ValidationErrors

	if input.Status == nil && input.Notas == nil && input.Fonte == nil {
		errs = append(errs, ValidationError{"body", "nenhum dado para atualizar"})
		return errs
	}
	if input.Status != nil && !entity.LeadStatus(*input.Status).Valid() {
		errs = append(errs, ValidationError{"status", "must be one of novo, contatado, qualificado, vendido, perdido"})
	}
	return errs
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}
