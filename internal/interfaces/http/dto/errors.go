package dto

import (
	"net/http"

	"github.com/erp/ledger/internal/domain/shared"
)

// API error codes, ERR_<CATEGORY>[_<DETAIL>]
const (
	ErrCodeInternal    = "ERR_INTERNAL"
	ErrCodeUnavailable = "ERR_UNAVAILABLE"

	ErrCodeBadRequest       = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput     = "ERR_INVALID_INPUT"
	ErrCodeRequestTooLarge  = "ERR_REQUEST_TOO_LARGE"
	ErrCodeValidation       = "ERR_VALIDATION"
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange  = "ERR_VALIDATION_RANGE"

	ErrCodeTenantRequired = "ERR_TENANT_REQUIRED"
	ErrCodeTenantInvalid  = "ERR_TENANT_INVALID"

	ErrCodeNotFound = "ERR_NOT_FOUND"

	// ErrCodeLedgerMismatch means a statement disagrees with the summary of
	// the same entity, which is a server-side fault.
	ErrCodeLedgerMismatch = "ERR_LEDGER_MISMATCH"
)

var httpStatusByCode = map[string]int{
	ErrCodeInternal:         http.StatusInternalServerError,
	ErrCodeUnavailable:      http.StatusServiceUnavailable,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidInput:     http.StatusBadRequest,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeValidationFormat: http.StatusBadRequest,
	ErrCodeValidationRange:  http.StatusBadRequest,
	ErrCodeTenantRequired:   http.StatusBadRequest,
	ErrCodeTenantInvalid:    http.StatusBadRequest,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeLedgerMismatch:   http.StatusInternalServerError,
}

// apiCodeByDomainCode translates shared.DomainError codes
var apiCodeByDomainCode = map[string]string{
	shared.CodeNotFound:       ErrCodeNotFound,
	shared.CodeInvalidInput:   ErrCodeInvalidInput,
	shared.CodeInvalidRange:   ErrCodeValidationRange,
	shared.CodeInvalidEntity:  ErrCodeInvalidInput,
	shared.CodeInvalidTenant:  ErrCodeTenantInvalid,
	shared.CodeLedgerMismatch: ErrCodeLedgerMismatch,
}

// GetHTTPStatus returns the status an API or domain error code answers
// with. Unknown codes are 500.
func GetHTTPStatus(code string) int {
	if status, ok := httpStatusByCode[NormalizeErrorCode(code)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode maps a domain code to its API code and returns
// anything else unchanged.
func NormalizeErrorCode(code string) string {
	if api, ok := apiCodeByDomainCode[code]; ok {
		return api
	}
	return code
}
