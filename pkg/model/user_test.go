package model

import (
	"errors"
	"testing"
)

func TestProfile_Validate(t *testing.T) {
	valid := Profile{Name: "Alice", Email: "alice@example.com", Password: "pw", DepartmentID: 2}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	err := Profile{Email: "alice@example.com"}.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	fields := map[string]bool{}
	for _, d := range ve.Details {
		fields[d.Field] = true
	}
	for _, f := range []string{"name", "password", "department_id"} {
		if !fields[f] {
			t.Errorf("expected %s in details, got %+v", f, ve.Details)
		}
	}
	if fields["email"] {
		t.Error("email is present and should not be reported")
	}
}

func TestLoginForm_Validate(t *testing.T) {
	if err := (LoginForm{Email: "a@b.c", Password: "x"}).Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	err := LoginForm{}.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Details) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}
}
