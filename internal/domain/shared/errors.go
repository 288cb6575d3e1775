package shared

import "errors"

// Error codes raised by the ledger and its adapters
const (
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeInvalidRange   = "INVALID_RANGE"
	CodeInvalidEntity  = "INVALID_ENTITY"
	CodeInvalidTenant  = "INVALID_TENANT"
	CodeLedgerMismatch = "STATEMENT_LEDGER_MISMATCH"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so
// errors.Is(err, ErrNotFound) holds for every not-found error
// regardless of its message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// AsDomainError unwraps err to a DomainError if it carries one
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Common domain errors
var (
	ErrNotFound     = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidRange = NewDomainError(CodeInvalidRange, "Range start is after range end")
)
