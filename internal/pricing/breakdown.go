// Package pricing computes deterministic price breakdowns for printable
// products. Everything here is pure: identical inputs always produce
// identical output, which is what lets an order's price snapshot be
// trusted as a faithful historical record.
package pricing

import (
	"fmt"
	"math"

	"github.com/printforge/printforge/internal/catalog"
)

// Adjustment types recorded in a breakdown's audit trail.
const (
	AdjustQuantityTier        = "quantity_tier"
	AdjustOption              = "option"
	AdjustAttributeMultiplier = "attribute_multiplier"
	AdjustAttributeAdd        = "attribute_add"
	AdjustDesignCharge        = "design_charge"
	AdjustPriceBook           = "price_book"
	AdjustModifier            = "modifier"
)

// AppliedModifier records one price adjustment for auditability.
type AppliedModifier struct {
	Type         string  `json:"type"`
	Value        float64 `json:"value"`
	Source       string  `json:"source"`
	BeforeAmount float64 `json:"before_amount"`
	AfterAmount  float64 `json:"after_amount"`
	Reason       string  `json:"reason,omitempty"`
}

// Selection holds the customer's chosen options and attribute values.
type Selection struct {
	OptionIDs       []int64         `json:"option_ids,omitempty"`
	AttributeValues map[int64]int64 `json:"attribute_values,omitempty"`
}

// Breakdown is the full price computation result. It is the payload
// frozen into an order's price snapshot at creation time.
type Breakdown struct {
	BasePrice     float64           `json:"base_price"`
	UnitPrice     float64           `json:"unit_price"`
	Quantity      int               `json:"quantity"`
	Applied       []AppliedModifier `json:"applied,omitempty"`
	Subtotal      float64           `json:"subtotal"`
	GSTPercentage float64           `json:"gst_percentage"`
	GSTAmount     float64           `json:"gst_amount"`
	TotalPayable  float64           `json:"total_payable"`
	Currency      string            `json:"currency"`
}

// ComputeBreakdown prices a product from its catalog base price, applying
// the quantity tier that contains quantity before any selections.
func ComputeBreakdown(product catalog.Product, sel Selection, quantity int) (Breakdown, error) {
	if quantity <= 0 {
		return Breakdown{}, ErrInvalidQuantity
	}

	unit := product.BasePrice
	var applied []AppliedModifier
	if tier, ok := product.TierFor(quantity); ok {
		applied = append(applied, AppliedModifier{
			Type:         AdjustQuantityTier,
			Value:        tier.UnitPrice,
			Source:       fmt.Sprintf("tier %d-%d", tier.MinQuantity, tier.MaxQuantity),
			BeforeAmount: unit,
			AfterAmount:  tier.UnitPrice,
		})
		unit = tier.UnitPrice
	}

	return finishBreakdown(product, sel, quantity, product.BasePrice, unit, applied)
}

// ComputeBreakdownAt prices a product from an externally resolved per-unit
// base price (the price-book effective price), bypassing quantity tiers.
// seed carries the resolution audit trail so the snapshot keeps the full
// history of how the base was reached.
func ComputeBreakdownAt(product catalog.Product, base float64, seed []AppliedModifier, sel Selection, quantity int) (Breakdown, error) {
	if quantity <= 0 {
		return Breakdown{}, ErrInvalidQuantity
	}
	applied := make([]AppliedModifier, len(seed))
	copy(applied, seed)
	return finishBreakdown(product, sel, quantity, base, base, applied)
}

func finishBreakdown(product catalog.Product, sel Selection, quantity int, base, unit float64, applied []AppliedModifier) (Breakdown, error) {
	unit, applied, err := applySelection(product, sel, unit, applied)
	if err != nil {
		return Breakdown{}, err
	}

	unit = round2(unit)
	subtotal := round2(unit * float64(quantity))
	if product.AdditionalDesignCharge > 0 {
		before := subtotal
		subtotal = round2(subtotal + product.AdditionalDesignCharge)
		applied = append(applied, AppliedModifier{
			Type:         AdjustDesignCharge,
			Value:        product.AdditionalDesignCharge,
			Source:       "design charge",
			BeforeAmount: before,
			AfterAmount:  subtotal,
			Reason:       "one-time design charge, not per unit",
		})
	}

	gstAmount := round2(subtotal * product.GSTPercentage / 100)
	return Breakdown{
		BasePrice:     base,
		UnitPrice:     unit,
		Quantity:      quantity,
		Applied:       applied,
		Subtotal:      subtotal,
		GSTPercentage: product.GSTPercentage,
		GSTAmount:     gstAmount,
		TotalPayable:  round2(subtotal + gstAmount),
		Currency:      "INR",
	}, nil
}

// applySelection walks the product's declared options and attributes in
// declaration order so the audit trail is stable. Attribute values apply
// their multiplier before their flat add; that ordering is load-bearing
// for numeric compatibility with existing snapshots.
func applySelection(product catalog.Product, sel Selection, unit float64, applied []AppliedModifier) (float64, []AppliedModifier, error) {
	selectedOptions := make(map[int64]bool, len(sel.OptionIDs))
	for _, id := range sel.OptionIDs {
		if _, ok := product.OptionByID(id); !ok {
			return 0, nil, fmt.Errorf("option %d: %w", id, ErrUnknownSelection)
		}
		selectedOptions[id] = true
	}
	for attrID, valueID := range sel.AttributeValues {
		if _, ok := product.AttributeValueByID(attrID, valueID); !ok {
			return 0, nil, fmt.Errorf("attribute %d value %d: %w", attrID, valueID, ErrUnknownSelection)
		}
	}

	for _, opt := range product.Options {
		if !selectedOptions[opt.ID] || opt.PriceAdd == 0 {
			continue
		}
		before := unit
		unit += opt.PriceAdd
		applied = append(applied, AppliedModifier{
			Type:         AdjustOption,
			Value:        opt.PriceAdd,
			Source:       fmt.Sprintf("option %s/%s", opt.Group, opt.Name),
			BeforeAmount: before,
			AfterAmount:  unit,
		})
	}

	for _, attr := range product.Attributes {
		valueID, ok := sel.AttributeValues[attr.ID]
		if !ok {
			continue
		}
		value, _ := product.AttributeValueByID(attr.ID, valueID)
		if value.PriceMultiplier != 0 && value.PriceMultiplier != 1 {
			before := unit
			unit *= value.PriceMultiplier
			applied = append(applied, AppliedModifier{
				Type:         AdjustAttributeMultiplier,
				Value:        value.PriceMultiplier,
				Source:       fmt.Sprintf("attribute %s=%s", attr.Name, value.Value),
				BeforeAmount: before,
				AfterAmount:  unit,
			})
		}
		if value.PriceAdd != 0 {
			before := unit
			unit += value.PriceAdd
			applied = append(applied, AppliedModifier{
				Type:         AdjustAttributeAdd,
				Value:        value.PriceAdd,
				Source:       fmt.Sprintf("attribute %s=%s", attr.Name, value.Value),
				BeforeAmount: before,
				AfterAmount:  unit,
			})
		}
	}

	return unit, applied, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
