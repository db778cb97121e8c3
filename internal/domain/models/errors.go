package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation error")
	// ErrModelFit matches every *ModelFitError via errors.Is.
	ErrModelFit = errors.New("model fit error")
)

// ValidationError reports malformed or insufficient input. Not retryable without fixing the input.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, format string, a ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, a...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Reason
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ModelFitError reports a numerical fit failure or an insufficient sample.
type ModelFitError struct {
	Stage  string // "forecast" or "anomaly"
	Reason string
	Err    error
}

func NewModelFitError(stage, reason string, err error) *ModelFitError {
	return &ModelFitError{Stage: stage, Reason: reason, Err: err}
}

func (e *ModelFitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model fit error: %s: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("model fit error: %s: %s", e.Stage, e.Reason)
}

func (e *ModelFitError) Unwrap() error { return e.Err }

func (e *ModelFitError) Is(target error) bool { return target == ErrModelFit }

// ErrorKind names the error class for transports.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrModelFit):
		return "ModelFitError"
	default:
		return "InternalError"
	}
}
