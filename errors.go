package edusession

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is returned when a backend request could not be sent or
	// completed.
	ErrNetwork = errors.New("network failure")
	// ErrServer is returned when the backend answered with an unexpected
	// non-2xx status.
	ErrServer = errors.New("server error")
	// ErrInvalidCredentials is returned when the backend rejects a login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation is returned when the backend rejects registration input
	// (duplicate phone, malformed fields).
	ErrValidation = errors.New("registration rejected")
	// ErrUnauthenticated is returned when no token is present or the backend
	// rejects the stored access token on a protected call.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrSessionExpired is returned when the refresh token exchange fails;
	// the store is always cleared before this error is surfaced.
	ErrSessionExpired = errors.New("session expired")
	// ErrLoginThrottled is returned when the client-side login throttle
	// rejects an attempt before any request is sent.
	ErrLoginThrottled = errors.New("login attempts throttled")
	// ErrClientNotReady is returned when a Client is used before
	// [Builder.Build] wired its dependencies.
	ErrClientNotReady = errors.New("client not initialized")
)

// AuthError carries the typed failure surfaced by [Client] operations: the
// taxonomy sentinel (reachable through errors.Is), the HTTP status when the
// backend answered, and the backend-supplied message when one was decoded.
type AuthError struct {
	Reason  error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e == nil || e.Reason == nil {
		return "auth error"
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Reason.Error(), e.Message)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Reason.Error(), e.Status)
	}
	return e.Reason.Error()
}

// Unwrap exposes the taxonomy sentinel to errors.Is.
func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Reason
}

func authErr(reason error, status int, message string) *AuthError {
	return &AuthError{Reason: reason, Status: status, Message: message}
}
