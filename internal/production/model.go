package production

import "time"

// Department is one production stage; Sequence totally orders the floor.
type Department struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Sequence int    `json:"sequence"`
}

// Status values for a department's work on one order.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusPaused     = "paused"
	StatusCompleted  = "completed"
	StatusStopped    = "stopped"
)

// DepartmentStatus is the per-(order, department) workflow row.
type DepartmentStatus struct {
	ID             int64      `json:"id"`
	OrderID        int64      `json:"order_id"`
	DepartmentID   int64      `json:"department_id"`
	DepartmentName string     `json:"department_name"`
	Sequence       int        `json:"sequence"`
	Status         string     `json:"status"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	PausedAt       *time.Time `json:"paused_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	StoppedAt      *time.Time `json:"stopped_at,omitempty"`
	Operator       string     `json:"operator,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// Active reports whether the row holds the order's single work slot.
func (d DepartmentStatus) Active() bool {
	return d.Status == StatusInProgress || d.Status == StatusPaused
}
