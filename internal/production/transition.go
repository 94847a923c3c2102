package production

import (
	"errors"
	"fmt"
	"time"
)

// Workflow errors.
var (
	ErrInvalidAction     = errors.New("invalid department action")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAnotherActive     = errors.New("another department is already active for this order")
)

// Actions accepted by the workflow endpoint.
const (
	ActionStart    = "start"
	ActionPause    = "pause"
	ActionResume   = "resume"
	ActionStop     = "stop"
	ActionComplete = "complete"
)

// Transition applies one floor action to a department row. The
// activeElsewhere flag enforces the single-work-slot invariant: at most
// one department per order may be in_progress or paused. Completion out
// of sequence order is allowed; the floor sometimes works ahead.
func Transition(current DepartmentStatus, action string, activeElsewhere bool, operator, notes string, now time.Time) (DepartmentStatus, error) {
	next := current
	if operator != "" {
		next.Operator = operator
	}
	if notes != "" {
		next.Notes = notes
	}

	switch action {
	case ActionStart:
		if current.Status != StatusPending {
			return current, transitionErr(action, current.Status)
		}
		if activeElsewhere {
			return current, ErrAnotherActive
		}
		next.Status = StatusInProgress
		next.StartedAt = &now
	case ActionPause:
		if current.Status != StatusInProgress {
			return current, transitionErr(action, current.Status)
		}
		next.Status = StatusPaused
		next.PausedAt = &now
	case ActionResume:
		if current.Status != StatusPaused {
			return current, transitionErr(action, current.Status)
		}
		next.Status = StatusInProgress
	case ActionStop:
		if !current.Active() {
			return current, transitionErr(action, current.Status)
		}
		next.Status = StatusStopped
		next.StoppedAt = &now
	case ActionComplete:
		if !current.Active() {
			return current, transitionErr(action, current.Status)
		}
		next.Status = StatusCompleted
		next.CompletedAt = &now
	default:
		return current, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	return next, nil
}

func transitionErr(action, status string) error {
	return fmt.Errorf("%w: cannot %s a %s department", ErrInvalidTransition, action, status)
}
