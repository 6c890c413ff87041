package models

import (
	"time"
)

// APIResponse is the envelope of every JSON response. Exactly one of Data
// and Error is meaningful, depending on Success.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError carries a stable machine readable code next to the message.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func NewSuccessResponse(data interface{}, message string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

func NewErrorResponse(code, message string, details map[string]string) *APIResponse {
	return &APIResponse{
		Error:     &APIError{Code: code, Message: message, Details: details},
		Timestamp: time.Now().UTC(),
	}
}

// WithRequestID tags the response with the id of the request it answers.
func (r *APIResponse) WithRequestID(id string) *APIResponse {
	r.RequestID = id
	return r
}
