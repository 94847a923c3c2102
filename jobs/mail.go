package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/printforge/printforge/internal/jobs"
)

// SendEmailJob delivers queued transactional mail over the configured
// SMTP relay.
type SendEmailJob struct {
	Host    string
	Port    int
	From    string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSendEmailJob wires the mail handler.
func NewSendEmailJob(host string, port int, from string, logger *slog.Logger, metrics *jobmetrics.Metrics) *SendEmailJob {
	return &SendEmailJob{Host: host, Port: port, From: from, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Host == "" || j.From == "" {
		return errors.New("send email: handler not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskTypeSendEmail)
	err := j.send(payload)
	if err != nil {
		j.Logger.Error("send email failed", "to", payload.To, "error", err)
	} else {
		j.Logger.Info("email sent", "to", payload.To, "subject", payload.Subject)
	}
	return tracker.End(err)
}

func (j *SendEmailJob) send(payload SendEmailPayload) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", j.From)
	fmt.Fprintf(&msg, "To: %s\r\n", payload.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", payload.Subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(payload.Body)

	addr := net.JoinHostPort(j.Host, strconv.Itoa(j.Port))
	return smtp.SendMail(addr, nil, j.From, []string{payload.To}, []byte(msg.String()))
}

// SendOrderConfirmation enqueues a confirmation mail. It satisfies the
// orders module's Mailer so the API server queues instead of blocking
// the webhook on SMTP.
func (c *Client) SendOrderConfirmation(ctx context.Context, to, subject, body string) error {
	_, err := c.EnqueueSendEmail(ctx, SendEmailPayload{To: to, Subject: subject, Body: body})
	return err
}
