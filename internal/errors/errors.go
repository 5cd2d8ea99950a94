package errors

import (
	"errors"
	"fmt"
)

// Common error types for the portal
var (
	// Provider errors
	ErrProviderUnavailable = errors.New("auth provider unavailable")
	ErrMalformedResponse   = errors.New("malformed provider response")

	// Browser client errors
	ErrClientNotFound = errors.New("browser client not found")
	ErrClientExpired  = errors.New("browser client expired")
	ErrInvalidCookie  = errors.New("invalid client cookie")

	// OAuth errors
	ErrInvalidState   = errors.New("invalid oauth state")
	ErrInvalidNonce   = errors.New("invalid nonce")
	ErrMissingIDToken = errors.New("missing id token")

	// Configuration errors
	ErrInsecureAppSecret = errors.New("default app secret outside DEV")

	// General errors
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import.
func New(text string) error {
	return errors.New(text)
}
