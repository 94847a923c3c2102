package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskIdempotencyCleanup prunes expired webhook dedup keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
	// TaskSnapshotBackfill freezes price snapshots onto legacy orders.
	TaskSnapshotBackfill = "orders:snapshot_backfill"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewIdempotencyCleanupTask constructs the cron cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// NewSnapshotBackfillTask constructs a backfill task capped at limit orders.
func NewSnapshotBackfillTask(limit int) (*asynq.Task, error) {
	data, err := json.Marshal(SnapshotBackfillPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotBackfill, data), nil
}
