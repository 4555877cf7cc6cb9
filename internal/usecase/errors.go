package usecase

import "errors"

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
	CodeConversion   = "CONVERSION_ERROR"
	CodeUpstream     = "UPSTREAM_ERROR"
)

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// DomainCode devolve o código do DomainError na cadeia, ou "".
func DomainCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func NewUpstreamError(message string, err error) *TechnicalError {
	return &TechnicalError{Code: CodeUpstream, Message: message, Err: err}
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}
