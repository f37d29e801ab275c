package scatter

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned before any placement work starts when the
	// templates, area, config or collaborators are unusable.
	ErrInvalidInput = errors.New("scatter: invalid input")

	// ErrPlacementSkipped marks a recoverable per-item failure. It is only
	// ever reported through Result.Skipped, never returned from Scatter.
	ErrPlacementSkipped = errors.New("scatter: placement skipped")
)

// SkipReason says why an item did not make it into the output.
type SkipReason int

const (
	SkipNoPosition  SkipReason = iota // attempt budget exhausted
	SkipCollision                     // foreign body inside the collision radius
	SkipInstantiate                   // the factory refused to create the object
)

func (r SkipReason) String() string {
	switch r {
	case SkipNoPosition:
		return "no valid position found"
	case SkipCollision:
		return "collision"
	case SkipInstantiate:
		return "instantiate failed"
	default:
		return "unknown"
	}
}

// SkipError records one skipped item.
type SkipError struct {
	// Index is the item's position in [0, Count).
	Index    int
	Reason   SkipReason
	Attempts int
	// Blocker is the first foreign body found by the collision probe.
	Blocker Handle
	// Err is the underlying factory error for SkipInstantiate.
	Err error
}

func (e *SkipError) Error() string {
	msg := fmt.Sprintf("item %d skipped: %s", e.Index, e.Reason)
	if e.Reason == SkipNoPosition {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes every SkipError match ErrPlacementSkipped.
func (e *SkipError) Is(target error) bool {
	return target == ErrPlacementSkipped
}

func (e *SkipError) Unwrap() error {
	return e.Err
}
