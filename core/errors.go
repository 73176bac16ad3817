package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// StoreError reports that the Directory or Response store could not serve a request.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (err StoreError) Error() string {
	return fmt.Sprintf("store unavailable: %s: %v", err.Op, err.Err)
}

func (err StoreError) Unwrap() error { return err.Err }

// IsStoreUnavailable reports whether a StoreError is anywhere in the chain of `err`.
func IsStoreUnavailable(err error) bool {
	var serr *StoreError
	return errors.As(err, &serr)
}

// AdvisoryError reports a failed call to the external text-generation service.
type AdvisoryError struct {
	Status int // HTTP status; 0 on transport failures
	Err    error
}

func NewAdvisoryError(status int, err error) error {
	return &AdvisoryError{Status: status, Err: err}
}

func (err AdvisoryError) Error() string {
	if err.Status != 0 {
		return fmt.Sprintf("advisory service (status %d): %v", err.Status, err.Err)
	}
	return fmt.Sprintf("advisory service: %v", err.Err)
}

func (err AdvisoryError) Unwrap() error { return err.Err }

// ConfigError lists the configuration keys an app cannot start without.
type ConfigError struct {
	Missing []string
}

func newConfigError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return &ConfigError{Missing: missing}
}

func (err ConfigError) Error() string {
	return "missing required configuration: " + strings.Join(err.Missing, ", ")
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
