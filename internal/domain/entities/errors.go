package entities

import (
	"errors"
	"fmt"
)

var ErrSessionNotFound = errors.New("session not found")

type ValidationKind string

const (
	InvalidType ValidationKind = "invalid_type"
	TooLarge    ValidationKind = "too_large"
	EmptyFile   ValidationKind = "empty"
)

type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// FailureKind classifies a failed remote call.
type FailureKind string

const (
	FailureNetwork               FailureKind = "network"
	FailureStatus                FailureKind = "status"
	FailureMalformed             FailureKind = "malformed_response"
	FailureUnresolvableReference FailureKind = "unresolvable_reference"
)

type AnalysisError struct {
	Kind       FailureKind
	StatusCode int
	Message    string
	Err        error
}

func (e *AnalysisError) Error() string {
	return "analysis failed: " + describe(e.Kind, e.StatusCode, e.Message, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

type SwapError struct {
	Kind       FailureKind
	StatusCode int
	Message    string
	Err        error
}

func (e *SwapError) Error() string {
	return "head swap failed: " + describe(e.Kind, e.StatusCode, e.Message, e.Err)
}

func (e *SwapError) Unwrap() error {
	return e.Err
}

func describe(kind FailureKind, status int, message string, err error) string {
	switch {
	case message != "" && status != 0:
		return fmt.Sprintf("%s (status %d)", message, status)
	case message != "":
		return message
	case err != nil:
		return err.Error()
	default:
		return string(kind)
	}
}

type Phase string

const (
	PhaseValidation Phase = "validation"
	PhaseAnalysis   Phase = "analysis"
	PhaseSwap       Phase = "swap"
	PhaseUnknown    Phase = "unknown"
)

// PhaseOf names the step a failure belongs to.
func PhaseOf(err error) Phase {
	var (
		validationErr *ValidationError
		analysisErr   *AnalysisError
		swapErr       *SwapError
	)
	switch {
	case errors.As(err, &validationErr):
		return PhaseValidation
	case errors.As(err, &analysisErr):
		return PhaseAnalysis
	case errors.As(err, &swapErr):
		return PhaseSwap
	default:
		return PhaseUnknown
	}
}
