package drag

import (
	"errors"
	"fmt"
)

var (
	ErrSessionActive = errors.New("a drag session is already active")
	ErrNoSession     = errors.New("no active drag session")
	ErrTaskNotFound  = errors.New("task not found")
)

type RejectReason string

const (
	RejectSelf          RejectReason = "self"
	RejectCycle         RejectReason = "cycle"
	RejectUnknownTarget RejectReason = "unknown-target"
	RejectInvalidTarget RejectReason = "invalid-target"
)

// RejectError is an invalid mutation caught before any state change.
type RejectError struct {
	Reason RejectReason
	TaskID string
	Target string
}

func (e RejectError) Error() string {
	switch e.Reason {
	case RejectSelf:
		return fmt.Sprintf("cannot drop %s onto itself", e.TaskID)
	case RejectCycle:
		return fmt.Sprintf("moving %s to %s would create a cycle", e.TaskID, e.Target)
	case RejectUnknownTarget:
		return fmt.Sprintf("drop target not found: %s", e.Target)
	default:
		return fmt.Sprintf("invalid drop target %s for %s", e.Target, e.TaskID)
	}
}
