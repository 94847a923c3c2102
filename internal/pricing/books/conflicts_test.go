package books

import (
	"errors"
	"math"
	"testing"
)

func zoneChildren(n int) []Entry {
	children := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		children = append(children, Entry{
			ID:        int64(100 + i),
			Level:     LevelZoneSegment,
			ZoneID:    ptr(1),
			SegmentID: ptr(int64(i + 1)),
			ProductID: 7,
			Price:     float64(40 + i*10),
			Available: true,
		})
	}
	return children
}

func TestBuildConflictReportEnumeratesAllDescendants(t *testing.T) {
	edit := Edit{Level: LevelZone, ZoneID: ptr(1), ProductID: 7, NewPrice: 60, OldPrice: 50}
	report := BuildConflictReport(edit, zoneChildren(5))

	if !report.HasConflicts {
		t.Fatal("expected conflicts")
	}
	if len(report.Items) != 5 {
		t.Fatalf("items = %d, want 5", len(report.Items))
	}
	if len(report.Options) != 3 {
		t.Fatalf("options = %d, want 3", len(report.Options))
	}

	first := report.Items[0]
	if first.CurrentPrice != 40 || first.PriceIfOverwrite != 60 {
		t.Fatalf("unexpected first item %#v", first)
	}
	if first.Direction != "increase" || first.Difference != 20 || first.PercentChange != 50 {
		t.Fatalf("unexpected diff math %#v", first)
	}

	last := report.Items[4]
	if last.Direction != "decrease" {
		t.Fatalf("expected decrease for child priced above the edit, got %#v", last)
	}
}

func TestBuildConflictReportEmpty(t *testing.T) {
	report := BuildConflictReport(Edit{Level: LevelZone, ZoneID: ptr(1), ProductID: 7, NewPrice: 60}, nil)
	if report.HasConflicts || len(report.Options) != 0 {
		t.Fatalf("expected empty report, got %#v", report)
	}
}

func TestPlanOverwriteDeletesEveryDescendant(t *testing.T) {
	edit := Edit{Level: LevelZone, ZoneID: ptr(1), ProductID: 7, NewPrice: 60, OldPrice: 50}
	plan, err := PlanResolution(edit, zoneChildren(3), StrategyOverwrite)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.DeleteEntryIDs) != 3 || len(plan.Rewrites) != 0 {
		t.Fatalf("unexpected plan %#v", plan)
	}
}

func TestPlanPreserveTouchesOnlyParent(t *testing.T) {
	edit := Edit{Level: LevelZone, ZoneID: ptr(1), ProductID: 7, NewPrice: 60, OldPrice: 50}
	plan, err := PlanResolution(edit, zoneChildren(3), StrategyPreserve)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.DeleteEntryIDs) != 0 || len(plan.Rewrites) != 0 {
		t.Fatalf("preserve must not touch descendants, got %#v", plan)
	}
}

func TestPlanRelativeKeepsPercentageOffset(t *testing.T) {
	edit := Edit{Level: LevelZone, ZoneID: ptr(1), ProductID: 7, NewPrice: 100, OldPrice: 50}
	children := zoneChildren(3) // priced 40, 50, 60 → ratios 0.8, 1.0, 1.2

	plan, err := PlanResolution(edit, children, StrategyRelative)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	want := []float64{80, 100, 120}
	if len(plan.Rewrites) != len(want) {
		t.Fatalf("rewrites = %d, want %d", len(plan.Rewrites), len(want))
	}
	for i, rewrite := range plan.Rewrites {
		ratio := children[i].Price / edit.OldPrice
		if math.Abs(rewrite.NewPrice-want[i]) > 0.01 {
			t.Fatalf("child %d (ratio %.2f): price = %v, want %v", i, ratio, rewrite.NewPrice, want[i])
		}
	}
}

func TestPlanRelativeRejectsZeroOldPrice(t *testing.T) {
	edit := Edit{Level: LevelZone, ZoneID: ptr(1), ProductID: 7, NewPrice: 100, OldPrice: 0}
	if _, err := PlanResolution(edit, zoneChildren(1), StrategyRelative); err == nil {
		t.Fatal("expected error for zero old parent price")
	}
}

func TestPlanUnknownStrategy(t *testing.T) {
	edit := Edit{Level: LevelZone, ZoneID: ptr(1), ProductID: 7, NewPrice: 100}
	if _, err := PlanResolution(edit, nil, "SPLIT"); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}
