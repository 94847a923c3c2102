package books

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/printforge/printforge/internal/observability"
)

const (
	priceCacheTTL        = 5 * time.Minute
	priceCacheVersionKey = "printforge:price:version"
)

// Service resolves effective prices and drives the conflict protocol.
// Resolved prices are cached in Redis; concurrent resolutions for the
// same key are collapsed through singleflight.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	redis   *redis.Client
	metrics *observability.Metrics
	group   singleflight.Group
}

// NewService constructs the price book service.
func NewService(logger *slog.Logger, repo Repository, redisClient *redis.Client, metrics *observability.Metrics) *Service {
	return &Service{logger: logger, repo: repo, redis: redisClient, metrics: metrics}
}

// ResolveEffectivePrice walks the hierarchy for the product and context.
func (s *Service) ResolveEffectivePrice(ctx context.Context, productID int64, rctx ResolutionContext) (*ResolvedPrice, error) {
	key, err := s.cacheKey(ctx, productID, rctx)
	if err == nil {
		if cached, ok := s.cacheGet(ctx, key); ok {
			s.metrics.ObservePriceResolution("hit")
			return cached, nil
		}
	}

	value, resolveErr, _ := s.group.Do(key, func() (interface{}, error) {
		entries, err := s.repo.CandidateEntries(ctx, productID, rctx)
		if err != nil {
			return nil, err
		}
		modifiers, err := s.repo.ActiveModifiers(ctx)
		if err != nil {
			return nil, err
		}
		resolved, err := Resolve(productID, rctx, entries, modifiers)
		if err != nil {
			return nil, err
		}
		return &resolved, nil
	})
	if resolveErr != nil {
		switch {
		case errors.Is(resolveErr, ErrNoPriceAvailable):
			s.metrics.ObservePriceResolution("missing")
		case errors.Is(resolveErr, ErrNotAvailableInZone):
			s.metrics.ObservePriceResolution("unavailable")
		default:
			s.metrics.ObservePriceResolution("error")
		}
		return nil, resolveErr
	}

	resolved := value.(*ResolvedPrice)
	s.metrics.ObservePriceResolution("resolved")
	if key != "" {
		s.cacheSet(ctx, key, resolved)
	}
	return resolved, nil
}

// DetectConflicts enumerates descendants affected by an admin edit.
func (s *Service) DetectConflicts(ctx context.Context, edit Edit) (*ConflictReport, error) {
	if !edit.Level.IsValid() {
		return nil, fmt.Errorf("detect conflicts: unknown level %q", edit.Level)
	}
	if err := s.fillOldPrice(ctx, &edit); err != nil {
		return nil, err
	}
	descendants, err := s.repo.DescendantEntries(ctx, edit)
	if err != nil {
		return nil, fmt.Errorf("detect conflicts: %w", err)
	}
	report := BuildConflictReport(edit, descendants)
	return &report, nil
}

// ApplyResolution applies exactly one strategy atomically and returns the
// number of descendant entries touched.
func (s *Service) ApplyResolution(ctx context.Context, edit Edit, strategy string) (int, error) {
	if err := s.fillOldPrice(ctx, &edit); err != nil {
		return 0, err
	}
	descendants, err := s.repo.DescendantEntries(ctx, edit)
	if err != nil {
		return 0, fmt.Errorf("apply resolution: %w", err)
	}
	plan, err := PlanResolution(edit, descendants, strategy)
	if err != nil {
		return 0, err
	}
	if err := s.repo.ApplyPlan(ctx, plan); err != nil {
		return 0, err
	}
	s.bustCache(ctx)
	s.logger.Info("price conflict resolved",
		"strategy", strategy,
		"level", edit.Level,
		"product_id", edit.ProductID,
		"descendants", len(descendants))
	return len(plan.DeleteEntryIDs) + len(plan.Rewrites), nil
}

// UpdatePrice writes a price directly when no conflicts exist; callers
// must run DetectConflicts first and route through ApplyResolution when
// the report is non-empty.
func (s *Service) UpdatePrice(ctx context.Context, edit Edit) error {
	if err := s.fillOldPrice(ctx, &edit); err != nil {
		return err
	}
	descendants, err := s.repo.DescendantEntries(ctx, edit)
	if err != nil {
		return fmt.Errorf("update price: %w", err)
	}
	if len(descendants) > 0 {
		return fmt.Errorf("update price: %w: %d descendant overrides exist", ErrResolutionFailed, len(descendants))
	}
	if err := s.repo.UpsertEntry(ctx, Entry{
		Level:     edit.Level,
		ZoneID:    edit.ZoneID,
		SegmentID: edit.SegmentID,
		ProductID: edit.ProductID,
		Price:     edit.NewPrice,
		Available: true,
	}); err != nil {
		return err
	}
	s.bustCache(ctx)
	return nil
}

// SetAvailability flags an entry unavailable (e.g. shipping restriction).
func (s *Service) SetAvailability(ctx context.Context, entryID int64, available bool, reason *string) error {
	if err := s.repo.SetAvailability(ctx, entryID, available, reason); err != nil {
		return err
	}
	s.bustCache(ctx)
	return nil
}

func (s *Service) fillOldPrice(ctx context.Context, edit *Edit) error {
	current, err := s.repo.GetEntry(ctx, edit.Level, edit.ProductID, edit.ZoneID, edit.SegmentID)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			edit.OldPrice = 0
			return nil
		}
		return fmt.Errorf("load current price: %w", err)
	}
	edit.OldPrice = current.Price
	return nil
}

// cacheKey embeds a version counter bumped on every write so stale
// resolutions age out immediately after a price change.
func (s *Service) cacheKey(ctx context.Context, productID int64, rctx ResolutionContext) (string, error) {
	if s.redis == nil {
		return "", errors.New("no cache")
	}
	version, err := s.redis.Get(ctx, priceCacheVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	zone, segment := int64(0), int64(0)
	if rctx.ZoneID != nil {
		zone = *rctx.ZoneID
	}
	if rctx.SegmentID != nil {
		segment = *rctx.SegmentID
	}
	return fmt.Sprintf("printforge:price:v%d:%d:%d:%d:%d", version, productID, zone, segment, rctx.Quantity), nil
}

func (s *Service) cacheGet(ctx context.Context, key string) (*ResolvedPrice, bool) {
	if s.redis == nil || key == "" {
		return nil, false
	}
	payload, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var resolved ResolvedPrice
	if err := json.Unmarshal(payload, &resolved); err != nil {
		return nil, false
	}
	return &resolved, true
}

func (s *Service) cacheSet(ctx context.Context, key string, resolved *ResolvedPrice) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(resolved)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, payload, priceCacheTTL).Err(); err != nil {
		s.logger.Warn("price cache set failed", "error", err)
	}
}

func (s *Service) bustCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Incr(ctx, priceCacheVersionKey).Err(); err != nil {
		s.logger.Warn("price cache bust failed", "error", err)
	}
}
