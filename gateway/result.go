package gateway

import "fmt"

// Error is an expected, structured failure reported by the auth provider
// (wrong password, expired token, unverified email, ...).
type Error struct {
	Status  int    `json:"status,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("auth provider error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("auth provider error %d", e.Status)
}

// MessageOr returns the provider message, or fallback when the provider sent none.
func (e *Error) MessageOr(fallback string) string {
	if e == nil || e.Message == "" {
		return fallback
	}
	return e.Message
}

// Result is the tagged outcome of a gateway call: exactly one of Data or Err is meaningful.
// Unexpected faults are not represented here; they are returned as a Go error alongside.
type Result[T any] struct {
	Data T
	Err  *Error
}

// Ok reports whether the provider accepted the request.
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// Success builds a successful result.
func Success[T any](data T) Result[T] {
	return Result[T]{Data: data}
}

// Failure builds a structured-error result.
func Failure[T any](err *Error) Result[T] {
	return Result[T]{Err: err}
}
