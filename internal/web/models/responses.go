package models

import (
	"time"
)

// APIResponse is the standard envelope for every JSON endpoint.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError carries a machine-readable code alongside the human message.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// NewSuccessResponse creates a successful API response
func NewSuccessResponse(data interface{}, message string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewErrorResponse creates an error API response
func NewErrorResponse(code, message string, details map[string]string) *APIResponse {
	return &APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	}
}

// HealthCheck represents a health check response
type HealthCheck struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health status of a component
type ComponentHealth struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewHealthCheck creates a new health check response
func NewHealthCheck(version string) *HealthCheck {
	return &HealthCheck{
		Status:     "healthy",
		Timestamp:  time.Now(),
		Version:    version,
		Components: make(map[string]ComponentHealth),
	}
}

// AddComponent adds a component health status
func (h *HealthCheck) AddComponent(name, status, message string, details map[string]interface{}) {
	h.Components[name] = ComponentHealth{
		Status:  status,
		Message: message,
		Details: details,
	}

	if status != "healthy" && h.Status == "healthy" {
		h.Status = "unhealthy"
	}
}
