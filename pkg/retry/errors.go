package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Class is the classification of a failed attempt
type Class string

const (
	// ClassTransient is an I/O or timeout failure that may succeed on retry
	ClassTransient Class = "transient"

	// ClassPermanent cannot succeed on retry (bad request, rejected input)
	ClassPermanent Class = "permanent"

	// ClassUnknown is an error of no recognised kind. It is retried within
	// the attempt budget but logged loudly.
	ClassUnknown Class = "unknown"

	// ClassPanic is a recovered panic inside a call: a programming error,
	// never retried
	ClassPanic Class = "panic"
)

// Error carries a classified failure
type Error struct {
	Class Class
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Permanent marks err so that the executor stops retrying on it
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Class: ClassPermanent, Err: err}
}

// Transient marks err as retryable
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Class: ClassTransient, Err: err}
}

// Classify decides how the executor treats err
func Classify(err error) Class {
	if err == nil {
		return ""
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified.Class
	}

	var permanent interface{ Permanent() bool }
	if errors.As(err, &permanent) && permanent.Permanent() {
		return ClassPermanent
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	return ClassUnknown
}

// IsTransient returns true if err is worth retrying as an I/O failure
func IsTransient(err error) bool {
	return Classify(err) == ClassTransient
}

// IsPermanent returns true if retrying err cannot help
func IsPermanent(err error) bool {
	c := Classify(err)
	return c == ClassPermanent || c == ClassPanic
}

// StatusRetryable reports whether an unacceptable HTTP status is worth
// another attempt: server errors, timeouts, throttling and conflicts with an
// operation already in flight
func StatusRetryable(code int) bool {
	switch {
	case code >= 500:
		return true
	case code == 408, code == 409, code == 429:
		return true
	case code >= 400:
		return false
	default:
		return true
	}
}
