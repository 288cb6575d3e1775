package handler

import "github.com/erp/ledger/internal/interfaces/http/dto"

// Envelope shapes referenced by the OpenAPI annotations. Handlers build the
// real bodies through dto.Response; these only give swag concrete types.

// APIResponse is a success envelope around T
type APIResponse[T any] struct {
	Success bool `json:"success" example:"true"`
	Data    T    `json:"data"`
}

// PagedResponse is a success envelope with pagination metadata
type PagedResponse[T any] struct {
	Success bool      `json:"success" example:"true"`
	Data    T         `json:"data"`
	Meta    *dto.Meta `json:"meta"`
}

// ErrorResponse is the failure envelope
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}

// DegradedResponse is the 503 health body: the error plus the check report
type DegradedResponse struct {
	Success bool           `json:"success" example:"false"`
	Data    HealthResponse `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
}
