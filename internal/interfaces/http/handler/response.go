package handler

import "github.com/rt44/backend/internal/interfaces/http/dto"

// APIResponse represents a generic API response for OpenAPI documentation
// @Description Standard API response wrapper with typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse represents an error API response for OpenAPI documentation
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// CountData reports how many records an operation touched
type CountData struct {
	Count int64 `json:"count" example:"12"`
}

// URLData is a time-limited download link
type URLData struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at" example:"2025-03-01T10:15:00Z"`
}
