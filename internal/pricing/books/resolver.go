package books

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/printforge/printforge/internal/pricing"
)

var (
	// ErrNoPriceAvailable indicates no hierarchy level has a price for
	// the product.
	ErrNoPriceAvailable = errors.New("no price available for product")
	// ErrNotAvailableInZone indicates the most specific matching entry is
	// marked unavailable. Availability is a hard stop, not a cache miss:
	// resolution never falls through to a parent book.
	ErrNotAvailableInZone = errors.New("product not available in zone")
)

// UnavailableError carries the stored reason alongside ErrNotAvailableInZone.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	if e.Reason == "" {
		return ErrNotAvailableInZone.Error()
	}
	return fmt.Sprintf("%s: %s", ErrNotAvailableInZone.Error(), e.Reason)
}

func (e *UnavailableError) Unwrap() error { return ErrNotAvailableInZone }

// ResolvedPrice is the outcome of walking the price book hierarchy and
// applying matching modifiers.
type ResolvedPrice struct {
	ProductID int64                     `json:"product_id"`
	Level     Level                     `json:"level"`
	BasePrice float64                   `json:"base_price"`
	UnitPrice float64                   `json:"unit_price"`
	Applied   []pricing.AppliedModifier `json:"applied,omitempty"`
}

// Resolve walks the candidate entries from most to least specific, stops at
// the first level holding a price for the product, then layers matching
// modifiers on top. Pure: all I/O happens before this call.
func Resolve(productID int64, rctx ResolutionContext, entries []Entry, modifiers []Modifier) (ResolvedPrice, error) {
	entry, ok := pickEntry(productID, rctx, entries)
	if !ok {
		return ResolvedPrice{}, ErrNoPriceAvailable
	}
	if !entry.Available {
		reason := ""
		if entry.UnavailableReason != nil {
			reason = *entry.UnavailableReason
		}
		return ResolvedPrice{}, &UnavailableError{Reason: reason}
	}

	resolved := ResolvedPrice{
		ProductID: productID,
		Level:     entry.Level,
		BasePrice: entry.Price,
		UnitPrice: entry.Price,
	}
	if entry.Level != LevelMaster {
		resolved.Applied = append(resolved.Applied, pricing.AppliedModifier{
			Type:         pricing.AdjustPriceBook,
			Value:        entry.Price,
			Source:       string(entry.Level),
			BeforeAmount: entry.Price,
			AfterAmount:  entry.Price,
			Reason:       "price book override",
		})
	}

	for _, mod := range orderModifiers(modifiers) {
		if !mod.IsActive || !mod.Matches(productID, rctx) {
			continue
		}
		before := resolved.UnitPrice
		resolved.UnitPrice = mod.Apply(resolved.UnitPrice)
		resolved.Applied = append(resolved.Applied, pricing.AppliedModifier{
			Type:         pricing.AdjustModifier,
			Value:        mod.Value,
			Source:       fmt.Sprintf("%s:%s", mod.Scope, mod.Name),
			BeforeAmount: before,
			AfterAmount:  resolved.UnitPrice,
		})
	}
	resolved.UnitPrice = math.Round(resolved.UnitPrice*100) / 100

	return resolved, nil
}

// pickEntry returns the most specific entry matching the context. The walk
// order SINGLE_CELL, ZONE_SEGMENT, ZONE, MASTER is the core invariant the
// conflict protocol protects.
func pickEntry(productID int64, rctx ResolutionContext, entries []Entry) (Entry, bool) {
	var best Entry
	found := false
	for _, entry := range entries {
		if entry.ProductID != productID || !entry.matchesContext(rctx) {
			continue
		}
		if !found || entry.Level.Specificity() > best.Level.Specificity() {
			best = entry
			found = true
		}
	}
	return best, found
}

func (e Entry) matchesContext(rctx ResolutionContext) bool {
	switch e.Level {
	case LevelMaster:
		return true
	case LevelZone:
		return ptrEq(e.ZoneID, rctx.ZoneID)
	case LevelZoneSegment, LevelSingleCell:
		return ptrEq(e.ZoneID, rctx.ZoneID) && ptrEq(e.SegmentID, rctx.SegmentID)
	default:
		return false
	}
}

func ptrEq(want, got *int64) bool {
	return want != nil && got != nil && *want == *got
}

// orderModifiers sorts by scope application order, then declaration order.
func orderModifiers(modifiers []Modifier) []Modifier {
	rank := make(map[Scope]int, len(scopeApplyOrder))
	for i, scope := range scopeApplyOrder {
		rank[scope] = i
	}
	ordered := make([]Modifier, len(modifiers))
	copy(ordered, modifiers)
	sort.SliceStable(ordered, func(i, j int) bool {
		if rank[ordered[i].Scope] != rank[ordered[j].Scope] {
			return rank[ordered[i].Scope] < rank[ordered[j].Scope]
		}
		return ordered[i].Position < ordered[j].Position
	})
	return ordered
}

// Matches evaluates the modifier's conditions against the context.
func (m Modifier) Matches(productID int64, rctx ResolutionContext) bool {
	if len(m.Conditions) == 0 {
		return true
	}
	matched := 0
	for _, cond := range m.Conditions {
		if cond.holds(productID, rctx) {
			matched++
		}
	}
	if m.Logic == "OR" {
		return matched > 0
	}
	return matched == len(m.Conditions)
}

func (c Condition) holds(productID int64, rctx ResolutionContext) bool {
	var actual float64
	switch c.Field {
	case FieldZone:
		if rctx.ZoneID == nil {
			return false
		}
		actual = float64(*rctx.ZoneID)
	case FieldSegment:
		if rctx.SegmentID == nil {
			return false
		}
		actual = float64(*rctx.SegmentID)
	case FieldProduct:
		actual = float64(productID)
	case FieldQuantity:
		actual = float64(rctx.Quantity)
	default:
		return false
	}

	switch c.Operator {
	case OpEq:
		return actual == c.Value
	case OpNeq:
		return actual != c.Value
	case OpGt:
		return actual > c.Value
	case OpGte:
		return actual >= c.Value
	case OpLt:
		return actual < c.Value
	case OpLte:
		return actual <= c.Value
	case OpIn:
		for _, v := range c.Values {
			if actual == v {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Apply adjusts a running price by the modifier's effect.
func (m Modifier) Apply(price float64) float64 {
	delta := m.Value
	if m.Effect == EffectPercent {
		delta = price * m.Value / 100
	}
	if m.Decrease {
		price -= delta
	} else {
		price += delta
	}
	if price < 0 {
		price = 0
	}
	return price
}
