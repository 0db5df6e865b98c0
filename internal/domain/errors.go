package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidIdentity is returned when a login carries no user id.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrInvalidCredentials is returned when the account service rejects a login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is returned by operations that need a session.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrEmptyCart is returned when checking out an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
)

// ValidationError reports malformed input to a store mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// NetworkError reports an unreachable upstream or a non-2xx response.
type NetworkError struct {
	Service string
	Op      string
	Status  int
	Err     error
}

func (e *NetworkError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Service, e.Op)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports a 401 or 403 from the upstream.
func (e *NetworkError) IsUnauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsUnauthorized reports whether err is a NetworkError carrying 401/403.
func IsUnauthorized(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr) && netErr.IsUnauthorized()
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
