package valueobjects

import (
	"errors"
	"fmt"
)

type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateUploading  SessionState = "uploading"
	StateProcessing SessionState = "processing"
	StateRevealing  SessionState = "revealing"
	StateComplete   SessionState = "complete"
	StateFailed     SessionState = "failed"
)

// CanTransition reports forward transitions only. Reset to idle is
// always allowed and is not modelled here.
func CanTransition(from, to SessionState) bool {
	switch from {
	case StateIdle:
		return to == StateUploading
	case StateUploading:
		return to == StateUploading || to == StateProcessing || to == StateFailed
	case StateProcessing:
		return to == StateRevealing || to == StateFailed
	case StateRevealing:
		return to == StateComplete || to == StateFailed
	default:
		return false
	}
}

func ValidateTransition(from, to SessionState) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func (s SessionState) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

// IsBusy is true while remote work is in flight.
func (s SessionState) IsBusy() bool {
	return s == StateProcessing || s == StateRevealing
}

var ErrInvalidTransition = errors.New("invalid session transition")
