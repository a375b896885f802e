package model

import "strings"

// TokenResponse is the body returned by POST /login/.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Department is an organisational unit users register into.
type Department struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Profile is the registration request for POST /register/.
type Profile struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	DepartmentID int    `json:"department_id"`
}

// Validate checks that every registration field is present.
func (p Profile) Validate() error {
	var details []FieldError
	if strings.TrimSpace(p.Name) == "" {
		details = append(details, FieldError{Field: "name", Message: "required"})
	}
	if strings.TrimSpace(p.Email) == "" {
		details = append(details, FieldError{Field: "email", Message: "required"})
	}
	if p.Password == "" {
		details = append(details, FieldError{Field: "password", Message: "required"})
	}
	if p.DepartmentID <= 0 {
		details = append(details, FieldError{Field: "department_id", Message: "must be positive"})
	}
	if len(details) > 0 {
		return NewValidationError("Invalid registration", details...)
	}
	return nil
}

// LoginForm holds the credentials submitted to POST /login/.
type LoginForm struct {
	Email    string
	Password string
}

// Validate checks that both email and password are present.
func (f LoginForm) Validate() error {
	var details []FieldError
	if strings.TrimSpace(f.Email) == "" {
		details = append(details, FieldError{Field: "email", Message: "required"})
	}
	if f.Password == "" {
		details = append(details, FieldError{Field: "password", Message: "required"})
	}
	if len(details) > 0 {
		return NewValidationError("Email and password required", details...)
	}
	return nil
}
