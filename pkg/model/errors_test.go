package model

import (
	"encoding/json"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("Invalid upload")
	want := "VALIDATION_ERROR: Invalid upload"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestValidationError_ErrorWithDetails(t *testing.T) {
	err := NewValidationError("Invalid registration",
		FieldError{Field: "email", Message: "required"},
		FieldError{Field: "department_id", Message: "must be positive"},
	)
	want := "VALIDATION_ERROR: Invalid registration (email required; department_id must be positive)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Code != ErrValidation {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidation)
	}
}

func TestServerDetail_Message(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail":"Email already registered"}`, "Email already registered"},
		{"list detail", `{"detail":[{"loc":["body","email"],"msg":"field required"},{"msg":"value is not a valid integer"}]}`, "field required; value is not a valid integer"},
		{"missing detail", `{}`, ""},
		{"numeric detail", `{"detail":42}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d ServerDetail
			if err := json.Unmarshal([]byte(tt.body), &d); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := d.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}
