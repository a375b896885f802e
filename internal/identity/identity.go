// Package identity extracts a display identity from a bearer credential.
//
// Decoding reads the token payload without verifying its signature. The
// result labels the UI and nothing else: every authorization decision is
// made by the document service, which validates the token on each request.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the client-visible user derived from a credential.
type Identity struct {
	// Subject is the token's "sub" claim (the user's email). Never empty.
	Subject string
	// ExpiresAt is the "exp" claim, zero when absent.
	ExpiresAt time.Time
}

// Expired reports whether the credential's exp claim lies before now.
// A credential without exp never expires client-side.
func (id Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}

// DecodeError is returned when a credential cannot be decoded into an
// Identity.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode credential: %s: %v", e.Reason, e.Err)
	}
	return "decode credential: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrMissingSubject is wrapped by DecodeError when the payload has no sub claim.
var ErrMissingSubject = errors.New("missing sub claim")

var parser = jwt.NewParser()

// Decode parses the credential's payload and returns its subject. It
// returns *DecodeError when the credential is malformed or carries no
// subject; it never returns a partially populated Identity.
func Decode(credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, &DecodeError{Reason: "empty credential"}
	}

	// Only the payload segment is read. The header's alg is not consulted,
	// so tokens with an unregistered or missing alg still decode.
	parts := strings.Split(credential, ".")
	if len(parts) != 3 {
		return Identity{}, &DecodeError{Reason: "malformed token",
			Err: fmt.Errorf("%w: want 3 segments, got %d", jwt.ErrTokenMalformed, len(parts))}
	}
	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return Identity{}, &DecodeError{Reason: "malformed payload", Err: err}
	}

	var claims jwt.RegisteredClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Identity{}, &DecodeError{Reason: "malformed claims", Err: err}
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return Identity{}, &DecodeError{Reason: "invalid sub claim", Err: err}
	}
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return Identity{}, &DecodeError{Reason: "no subject", Err: ErrMissingSubject}
	}

	id := Identity{Subject: sub}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
