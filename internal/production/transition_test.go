package production

import (
	"errors"
	"testing"
	"time"
)

var actionTime = time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)

func pendingRow() DepartmentStatus {
	return DepartmentStatus{ID: 1, OrderID: 7, DepartmentID: 2, DepartmentName: "Printing", Sequence: 2, Status: StatusPending}
}

func TestTransitionFullLifecycle(t *testing.T) {
	row := pendingRow()

	row, err := Transition(row, ActionStart, false, "op@printforge.in", "", actionTime)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if row.Status != StatusInProgress || row.StartedAt == nil {
		t.Fatalf("after start: %#v", row)
	}

	row, err = Transition(row, ActionPause, false, "", "waiting on stock", actionTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if row.Status != StatusPaused || row.PausedAt == nil || row.Notes != "waiting on stock" {
		t.Fatalf("after pause: %#v", row)
	}

	row, err = Transition(row, ActionResume, false, "", "", actionTime.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if row.Status != StatusInProgress {
		t.Fatalf("after resume: %#v", row)
	}

	row, err = Transition(row, ActionComplete, false, "", "", actionTime.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if row.Status != StatusCompleted || row.CompletedAt == nil {
		t.Fatalf("after complete: %#v", row)
	}
	if row.Operator != "op@printforge.in" {
		t.Fatalf("operator lost across transitions: %#v", row)
	}
}

func TestTransitionStartBlockedWhileAnotherActive(t *testing.T) {
	_, err := Transition(pendingRow(), ActionStart, true, "", "", actionTime)
	if !errors.Is(err, ErrAnotherActive) {
		t.Fatalf("expected ErrAnotherActive, got %v", err)
	}
}

func TestTransitionCompleteFromPaused(t *testing.T) {
	row := pendingRow()
	row.Status = StatusPaused

	row, err := Transition(row, ActionComplete, false, "", "", actionTime)
	if err != nil {
		t.Fatalf("complete from paused: %v", err)
	}
	if row.Status != StatusCompleted {
		t.Fatalf("got %s, want completed", row.Status)
	}
}

func TestTransitionStopRecordsTimestamp(t *testing.T) {
	row := pendingRow()
	row.Status = StatusInProgress

	row, err := Transition(row, ActionStop, false, "", "machine down", actionTime)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if row.Status != StatusStopped || row.StoppedAt == nil {
		t.Fatalf("after stop: %#v", row)
	}
}

func TestTransitionRejectsInvalidMoves(t *testing.T) {
	cases := []struct {
		name   string
		status string
		action string
	}{
		{"pause before start", StatusPending, ActionPause},
		{"resume running", StatusInProgress, ActionResume},
		{"restart completed", StatusCompleted, ActionStart},
		{"complete pending", StatusPending, ActionComplete},
		{"stop stopped", StatusStopped, ActionStop},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := pendingRow()
			row.Status = tc.status
			if _, err := Transition(row, tc.action, false, "", "", actionTime); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestTransitionUnknownAction(t *testing.T) {
	if _, err := Transition(pendingRow(), "archive", false, "", "", actionTime); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestTransitionErrorLeavesRowUnchanged(t *testing.T) {
	row := pendingRow()
	got, err := Transition(row, ActionPause, false, "op", "note", actionTime)
	if err == nil {
		t.Fatal("expected error")
	}
	if got != row {
		t.Fatalf("failed transition mutated the row: %#v", got)
	}
}
