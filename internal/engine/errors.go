// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// ErrRoundNotFound is returned when no round exists for the requested date.
var ErrRoundNotFound = errors.New("round not found")

// ErrSlotOutOfRange is returned by the store when a winner slot does not
// match any entrant in the round's current entrant set.
var ErrSlotOutOfRange = errors.New("slot does not match any entrant")

// ErrInsufficientEntrants signals that the qualifying candidate pool is too
// small to form a roster; the resolver reacts by falling back to training.
var ErrInsufficientEntrants = errors.New("not enough qualifying entrants")

// ValidationError marks a client-input failure (bad date, out-of-range
// capacity or slot). It is never retried and maps to a 4xx at the HTTP layer.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
