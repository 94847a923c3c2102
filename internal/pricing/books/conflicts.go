package books

import (
	"errors"
	"fmt"
	"math"
)

// Resolution strategies offered to the admin when an edit at a less
// specific level would shadow existing child overrides.
const (
	StrategyOverwrite = "OVERWRITE"
	StrategyPreserve  = "PRESERVE"
	StrategyRelative  = "RELATIVE"
)

var (
	// ErrUnknownStrategy indicates an unrecognised resolution strategy id.
	ErrUnknownStrategy = errors.New("unknown resolution strategy")
	// ErrResolutionFailed indicates the atomic conflict write failed and
	// every price book was left in its pre-edit state.
	ErrResolutionFailed = errors.New("conflict resolution failed")
)

// Edit describes an admin price write at one hierarchy level.
type Edit struct {
	Level     Level   `json:"level"`
	ZoneID    *int64  `json:"zone_id,omitempty"`
	SegmentID *int64  `json:"segment_id,omitempty"`
	ProductID int64   `json:"product_id"`
	NewPrice  float64 `json:"new_price"`
	OldPrice  float64 `json:"old_price"`
}

// ConflictItem describes one descendant entry whose effective price would
// change if the edit were applied blindly.
type ConflictItem struct {
	EntryID          int64   `json:"entry_id"`
	Level            Level   `json:"level"`
	ZoneID           *int64  `json:"zone_id,omitempty"`
	SegmentID        *int64  `json:"segment_id,omitempty"`
	CurrentPrice     float64 `json:"current_price"`
	PriceIfOverwrite float64 `json:"price_if_overwritten"`
	Difference       float64 `json:"difference"`
	PercentChange    float64 `json:"percent_change"`
	Direction        string  `json:"direction"` // increase or decrease
}

// ResolutionOption is one strategy the admin may pick.
type ResolutionOption struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ConflictReport enumerates every affected descendant. Large reports are
// paginated by the handler, never truncated.
type ConflictReport struct {
	Edit         Edit               `json:"edit"`
	HasConflicts bool               `json:"has_conflicts"`
	Items        []ConflictItem     `json:"affected_items"`
	Options      []ResolutionOption `json:"resolution_options"`
}

// EntryWrite is one descendant price rewrite computed for a strategy.
type EntryWrite struct {
	EntryID  int64
	NewPrice float64
}

// ResolutionPlan is the full set of writes one strategy implies. The
// repository applies it inside a single transaction.
type ResolutionPlan struct {
	Strategy       string
	Edit           Edit
	DeleteEntryIDs []int64
	Rewrites       []EntryWrite
}

// BuildConflictReport enumerates the descendants of an edit. descendants
// must already be filtered to entries strictly more specific than the
// edited level for the same product (and zone, when the edit is at ZONE).
func BuildConflictReport(edit Edit, descendants []Entry) ConflictReport {
	report := ConflictReport{Edit: edit}
	for _, entry := range descendants {
		diff := edit.NewPrice - entry.Price
		direction := "increase"
		if diff < 0 {
			direction = "decrease"
		}
		pct := 0.0
		if entry.Price != 0 {
			pct = math.Round(diff/entry.Price*10000) / 100
		}
		report.Items = append(report.Items, ConflictItem{
			EntryID:          entry.ID,
			Level:            entry.Level,
			ZoneID:           entry.ZoneID,
			SegmentID:        entry.SegmentID,
			CurrentPrice:     entry.Price,
			PriceIfOverwrite: edit.NewPrice,
			Difference:       math.Abs(math.Round(diff*100) / 100),
			PercentChange:    math.Abs(pct),
			Direction:        direction,
		})
	}
	report.HasConflicts = len(report.Items) > 0
	if report.HasConflicts {
		report.Options = []ResolutionOption{
			{ID: StrategyOverwrite, Label: "Overwrite", Description: "Remove child overrides; they inherit the new price."},
			{ID: StrategyPreserve, Label: "Preserve", Description: "Children keep their current absolute prices."},
			{ID: StrategyRelative, Label: "Relative", Description: "Children keep their percentage offset from the parent."},
		}
	}
	return report
}

// PlanResolution computes the exact writes for one strategy. Pure; the
// repository executes the plan atomically.
func PlanResolution(edit Edit, descendants []Entry, strategy string) (ResolutionPlan, error) {
	plan := ResolutionPlan{Strategy: strategy, Edit: edit}
	switch strategy {
	case StrategyOverwrite:
		for _, entry := range descendants {
			plan.DeleteEntryIDs = append(plan.DeleteEntryIDs, entry.ID)
		}
	case StrategyPreserve:
		// Parent write only; children keep their absolute prices.
	case StrategyRelative:
		if edit.OldPrice == 0 {
			return ResolutionPlan{}, fmt.Errorf("%w: relative strategy needs a non-zero previous parent price", ErrUnknownStrategy)
		}
		for _, entry := range descendants {
			ratio := entry.Price / edit.OldPrice
			plan.Rewrites = append(plan.Rewrites, EntryWrite{
				EntryID:  entry.ID,
				NewPrice: math.Round(edit.NewPrice*ratio*100) / 100,
			})
		}
	default:
		return ResolutionPlan{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	return plan, nil
}
