package shipment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/printforge/printforge/internal/observability"
	"github.com/printforge/printforge/internal/timeline"
)

// ErrUnknownAWB indicates no order carries the webhook's AWB code.
var ErrUnknownAWB = errors.New("unknown awb code")

const webhookDedupTTL = 7 * 24 * time.Hour

// OrderFeed is the narrow slice of order storage the webhook needs. The
// orders module implements it; keeping the interface here avoids a
// package cycle.
type OrderFeed interface {
	OrderIDByAWB(ctx context.Context, awbCode string) (int64, error)
	SetCourierStatus(ctx context.Context, orderID int64, status string, deliveredAt *time.Time) error
}

// WebhookPayload is the courier vendor's callback shape. Everything but
// the AWB code and status is best-effort: vendors routinely omit or
// malform the optional fields.
type WebhookPayload struct {
	EventID   string `json:"event_id"`
	AWBCode   string `json:"awb_code"`
	Status    string `json:"current_status"`
	Location  string `json:"location"`
	Timestamp string `json:"timestamp"`
	Notes     string `json:"remarks"`
}

// IngestResult reports what happened to one webhook delivery.
type IngestResult string

const (
	IngestAccepted  IngestResult = "accepted"
	IngestDuplicate IngestResult = "duplicate"
	IngestUnknown   IngestResult = "unknown_order"
)

// WebhookService turns courier callbacks into timeline entries and order
// status updates. Re-delivered events are dropped through a Redis SETNX
// key so the feed stays append-only without duplicates.
type WebhookService struct {
	logger  *slog.Logger
	repo    Repository
	orders  OrderFeed
	redis   *redis.Client
	metrics *observability.Metrics
	now     func() time.Time
}

// NewWebhookService wires the courier webhook pipeline.
func NewWebhookService(logger *slog.Logger, repo Repository, orders OrderFeed, redisClient *redis.Client, metrics *observability.Metrics) *WebhookService {
	return &WebhookService{
		logger:  logger,
		repo:    repo,
		orders:  orders,
		redis:   redisClient,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Ingest processes one delivery. Duplicates and unknown AWBs are not
// errors; the vendor keeps retrying on anything but success.
func (s *WebhookService) Ingest(ctx context.Context, payload WebhookPayload) (IngestResult, error) {
	if payload.AWBCode == "" || payload.Status == "" {
		return "", fmt.Errorf("webhook missing awb_code or current_status")
	}

	fresh, err := s.markSeen(ctx, payload)
	if err != nil {
		s.metrics.ObserveWebhookEvent("courier", "error")
		return "", err
	}
	if !fresh {
		s.metrics.ObserveWebhookEvent("courier", string(IngestDuplicate))
		return IngestDuplicate, nil
	}

	orderID, err := s.orders.OrderIDByAWB(ctx, payload.AWBCode)
	if err != nil {
		if errors.Is(err, ErrUnknownAWB) {
			s.metrics.ObserveWebhookEvent("courier", string(IngestUnknown))
			s.logger.Warn("courier webhook for unknown awb", "awb_code", payload.AWBCode)
			return IngestUnknown, nil
		}
		s.metrics.ObserveWebhookEvent("courier", "error")
		s.releaseSeen(ctx, payload)
		return "", fmt.Errorf("resolve order for awb: %w", err)
	}

	occurredAt := s.parseTimestamp(payload.Timestamp)
	if err := s.repo.Append(ctx, CourierTimelineEntry{
		OrderID:   orderID,
		Status:    payload.Status,
		Location:  payload.Location,
		Timestamp: occurredAt,
		Notes:     payload.Notes,
	}); err != nil {
		s.metrics.ObserveWebhookEvent("courier", "error")
		s.releaseSeen(ctx, payload)
		return "", err
	}

	var deliveredAt *time.Time
	if timeline.ClassifyStatus(payload.Status).Rank == timeline.RankDelivered {
		deliveredAt = &occurredAt
	}
	if err := s.orders.SetCourierStatus(ctx, orderID, payload.Status, deliveredAt); err != nil {
		s.metrics.ObserveWebhookEvent("courier", "error")
		s.releaseSeen(ctx, payload)
		return "", fmt.Errorf("update order courier status: %w", err)
	}

	s.metrics.ObserveWebhookEvent("courier", string(IngestAccepted))
	s.logger.Info("courier webhook ingested",
		"order_id", orderID,
		"awb_code", payload.AWBCode,
		"status", payload.Status)
	return IngestAccepted, nil
}

// markSeen claims the event's dedup key. Returns false when an identical
// delivery already claimed it.
func (s *WebhookService) markSeen(ctx context.Context, payload WebhookPayload) (bool, error) {
	if s.redis == nil {
		return true, nil
	}
	ok, err := s.redis.SetNX(ctx, seenKey(payload), 1, webhookDedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("webhook dedup: %w", err)
	}
	return ok, nil
}

// releaseSeen gives the dedup key back after a failed write so the
// vendor's retry is processed instead of dropped as a duplicate.
func (s *WebhookService) releaseSeen(ctx context.Context, payload WebhookPayload) {
	if s.redis == nil {
		return
	}
	key := seenKey(payload)
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		s.logger.Error("release webhook dedup key", "key", key, "error", err)
	}
}

func seenKey(payload WebhookPayload) string {
	return "printforge:webhook:courier:" + dedupKey(payload)
}

func dedupKey(payload WebhookPayload) string {
	if payload.EventID != "" {
		return payload.EventID
	}
	sum := sha256.Sum256([]byte(payload.AWBCode + "|" + payload.Status + "|" + payload.Timestamp))
	return hex.EncodeToString(sum[:16])
}

// parseTimestamp tolerates the vendor's two observed formats and falls
// back to the ingest time rather than rejecting the event.
func (s *WebhookService) parseTimestamp(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return s.now()
}
