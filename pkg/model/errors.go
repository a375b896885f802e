package model

import (
	"fmt"
	"strings"
)

// ErrorCode classifies client-side failures.
type ErrorCode string

const ErrValidation ErrorCode = "VALIDATION_ERROR"

// ValidationError reports missing or malformed form input. It is returned
// before any request is dispatched.
type ValidationError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	fields := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		fields = append(fields, d.Field+" "+d.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(fields, "; "))
}

// FieldError describes a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewValidationError creates a ValidationError with field details.
func NewValidationError(msg string, details ...FieldError) *ValidationError {
	return &ValidationError{Code: ErrValidation, Message: msg, Details: details}
}

// ServerDetail is the error body shape returned by the document service,
// e.g. {"detail": "Email already registered"}.
type ServerDetail struct {
	Detail any `json:"detail"`
}

// Message renders Detail as text. Validation failures from the service carry
// a list of objects; those are joined by their "msg" fields.
func (d ServerDetail) Message() string {
	switch v := d.Detail.(type) {
	case string:
		return v
	case []any:
		var msgs []string
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				if s, ok := m["msg"].(string); ok {
					msgs = append(msgs, s)
				}
			}
		}
		return strings.Join(msgs, "; ")
	default:
		return ""
	}
}
