package books

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printforge/printforge/internal/observability"
)

type stubRepo struct {
	entries   map[int64]Entry
	modifiers []Modifier
	nextID    int64
	planErr   error
}

func newStubRepo(entries ...Entry) *stubRepo {
	repo := &stubRepo{entries: make(map[int64]Entry), nextID: 1000}
	for _, entry := range entries {
		repo.entries[entry.ID] = entry
	}
	return repo
}

func (s *stubRepo) CandidateEntries(_ context.Context, productID int64, rctx ResolutionContext) ([]Entry, error) {
	var out []Entry
	for _, entry := range s.entries {
		if entry.ProductID == productID && entry.matchesContext(rctx) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *stubRepo) ActiveModifiers(context.Context) ([]Modifier, error) {
	return s.modifiers, nil
}

func (s *stubRepo) GetEntry(_ context.Context, level Level, productID int64, zoneID, segmentID *int64) (*Entry, error) {
	for _, entry := range s.entries {
		if entry.Level == level && entry.ProductID == productID &&
			ptrMatch(entry.ZoneID, zoneID) && ptrMatch(entry.SegmentID, segmentID) {
			found := entry
			return &found, nil
		}
	}
	return nil, ErrEntryNotFound
}

func (s *stubRepo) DescendantEntries(_ context.Context, edit Edit) ([]Entry, error) {
	var out []Entry
	for _, entry := range s.entries {
		if entry.ProductID != edit.ProductID {
			continue
		}
		if entry.Level.Specificity() <= edit.Level.Specificity() {
			continue
		}
		if edit.Level == LevelZone && !ptrMatch(entry.ZoneID, edit.ZoneID) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *stubRepo) UpsertEntry(_ context.Context, entry Entry) error {
	s.nextID++
	entry.ID = s.nextID
	s.entries[entry.ID] = entry
	return nil
}

func (s *stubRepo) SetAvailability(_ context.Context, id int64, available bool, reason *string) error {
	entry, ok := s.entries[id]
	if !ok {
		return ErrEntryNotFound
	}
	entry.Available = available
	entry.UnavailableReason = reason
	s.entries[id] = entry
	return nil
}

func (s *stubRepo) ApplyPlan(_ context.Context, plan ResolutionPlan) error {
	if s.planErr != nil {
		return s.planErr
	}
	for _, id := range plan.DeleteEntryIDs {
		delete(s.entries, id)
	}
	for _, rewrite := range plan.Rewrites {
		entry := s.entries[rewrite.EntryID]
		entry.Price = rewrite.NewPrice
		s.entries[rewrite.EntryID] = entry
	}
	// Parent upsert.
	for id, entry := range s.entries {
		if entry.Level == plan.Edit.Level && entry.ProductID == plan.Edit.ProductID &&
			ptrMatch(entry.ZoneID, plan.Edit.ZoneID) && ptrMatch(entry.SegmentID, plan.Edit.SegmentID) {
			entry.Price = plan.Edit.NewPrice
			s.entries[id] = entry
			return nil
		}
	}
	s.nextID++
	s.entries[s.nextID] = Entry{
		ID: s.nextID, Level: plan.Edit.Level, ZoneID: plan.Edit.ZoneID,
		SegmentID: plan.Edit.SegmentID, ProductID: plan.Edit.ProductID,
		Price: plan.Edit.NewPrice, Available: true,
	}
	return nil
}

func ptrMatch(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(slog.Default(), repo, client, observability.NewMetrics())
}

func TestMasterOverwriteRemovesZoneOverride(t *testing.T) {
	// Zone A prices product X at 50; admin raises MASTER to 80 with
	// OVERWRITE. The zone override must be gone afterwards.
	repo := newStubRepo(
		Entry{ID: 1, Level: LevelMaster, ProductID: 42, Price: 70, Available: true},
		Entry{ID: 2, Level: LevelZone, ZoneID: ptr(5), ProductID: 42, Price: 50, Available: true},
	)
	service := newTestService(t, repo)
	ctx := context.Background()
	edit := Edit{Level: LevelMaster, ProductID: 42, NewPrice: 80}

	report, err := service.DetectConflicts(ctx, edit)
	require.NoError(t, err)
	require.True(t, report.HasConflicts)
	require.Len(t, report.Items, 1)

	updated, err := service.ApplyResolution(ctx, edit, StrategyOverwrite)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	resolved, err := service.ResolveEffectivePrice(ctx, 42, ResolutionContext{ZoneID: ptr(5), Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, LevelMaster, resolved.Level)
	assert.Equal(t, 80.0, resolved.UnitPrice)
}

func TestPreserveKeepsDescendantPrices(t *testing.T) {
	repo := newStubRepo(
		Entry{ID: 1, Level: LevelZone, ZoneID: ptr(5), ProductID: 42, Price: 50, Available: true},
		Entry{ID: 2, Level: LevelZoneSegment, ZoneID: ptr(5), SegmentID: ptr(3), ProductID: 42, Price: 45, Available: true},
	)
	service := newTestService(t, repo)
	ctx := context.Background()
	edit := Edit{Level: LevelZone, ZoneID: ptr(5), ProductID: 42, NewPrice: 65}

	_, err := service.ApplyResolution(ctx, edit, StrategyPreserve)
	require.NoError(t, err)

	assert.Equal(t, 45.0, repo.entries[2].Price, "descendant price must be numerically unchanged")
	assert.Equal(t, 65.0, repo.entries[1].Price)
}

func TestResolutionCacheBustedAfterWrite(t *testing.T) {
	repo := newStubRepo(
		Entry{ID: 1, Level: LevelMaster, ProductID: 42, Price: 70, Available: true},
	)
	service := newTestService(t, repo)
	ctx := context.Background()
	rctx := ResolutionContext{Quantity: 1}

	first, err := service.ResolveEffectivePrice(ctx, 42, rctx)
	require.NoError(t, err)
	assert.Equal(t, 70.0, first.UnitPrice)

	// Second call comes from cache.
	second, err := service.ResolveEffectivePrice(ctx, 42, rctx)
	require.NoError(t, err)
	assert.Equal(t, 70.0, second.UnitPrice)

	_, err = service.ApplyResolution(ctx, Edit{Level: LevelMaster, ProductID: 42, NewPrice: 75}, StrategyPreserve)
	require.NoError(t, err)

	third, err := service.ResolveEffectivePrice(ctx, 42, rctx)
	require.NoError(t, err)
	assert.Equal(t, 75.0, third.UnitPrice, "cache must be busted after a price write")
}

func TestUpdatePriceRefusesWhenDescendantsExist(t *testing.T) {
	repo := newStubRepo(
		Entry{ID: 1, Level: LevelZone, ZoneID: ptr(5), ProductID: 42, Price: 50, Available: true},
		Entry{ID: 2, Level: LevelSingleCell, ZoneID: ptr(5), SegmentID: ptr(3), ProductID: 42, Price: 44, Available: true},
	)
	service := newTestService(t, repo)

	err := service.UpdatePrice(context.Background(), Edit{Level: LevelZone, ZoneID: ptr(5), ProductID: 42, NewPrice: 60})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolutionFailed)
}
