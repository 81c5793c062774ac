package types

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a sticky note status change is not
// allowed by the status machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// ValidStickyStatuses contains all valid sticky note statuses
var ValidStickyStatuses = []StickyStatus{
	StickyActive,
	StickyActionTaken,
	StickyFalsePositive,
}

// IsValidStickyStatus checks if the given status is a valid sticky status.
func IsValidStickyStatus(status StickyStatus) bool {
	for _, valid := range ValidStickyStatuses {
		if status == valid {
			return true
		}
	}
	return false
}

// IsValidStickyTransition validates sticky note status transitions.
//
// Valid transitions:
//
//	active -> action_taken | false_positive
//	action_taken -> (terminal)
//	false_positive -> (terminal)
func IsValidStickyTransition(current, next StickyStatus) bool {
	if current != StickyActive {
		return false
	}
	return next == StickyActionTaken || next == StickyFalsePositive
}

// CheckStickyTransition returns an ErrInvalidTransition-wrapped error when the
// transition from current to next is not allowed.
func CheckStickyTransition(current, next StickyStatus) error {
	if !IsValidStickyTransition(current, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}
	return nil
}
