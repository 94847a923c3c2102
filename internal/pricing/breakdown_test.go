package pricing

import (
	"errors"
	"reflect"
	"testing"

	"github.com/printforge/printforge/internal/catalog"
)

func businessCardProduct() catalog.Product {
	return catalog.Product{
		ID:            1,
		SKU:           "BC-STD",
		Name:          "Business Cards",
		BasePrice:     100,
		GSTPercentage: 18,
		Options: []catalog.Option{
			{ID: 11, Group: "finish", Name: "Matte", PriceAdd: 0},
			{ID: 12, Group: "finish", Name: "Gloss", PriceAdd: 5},
			{ID: 13, Group: "shape", Name: "Rounded", PriceAdd: 2.5},
		},
		Attributes: []catalog.DynamicAttribute{
			{
				ID: 21, AttributeTypeID: 1, Name: "Paper",
				Values: []catalog.AttributeValue{
					{ID: 211, Value: "300gsm", PriceAdd: 0},
					{ID: 212, Value: "Textured", PriceAdd: 3, PriceMultiplier: 1.1},
				},
			},
		},
		QuantityTiers: []catalog.QuantityTier{
			{MinQuantity: 100, MaxQuantity: 499, UnitPrice: 90},
			{MinQuantity: 500, MaxQuantity: 999, UnitPrice: 80},
		},
	}
}

func TestComputeBreakdownGoldenCase(t *testing.T) {
	product := catalog.Product{BasePrice: 100, GSTPercentage: 18}

	got, err := ComputeBreakdown(product, Selection{}, 10)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if got.Subtotal != 1000 {
		t.Fatalf("subtotal = %v, want 1000", got.Subtotal)
	}
	if got.GSTAmount != 180 {
		t.Fatalf("gst = %v, want 180", got.GSTAmount)
	}
	if got.TotalPayable != 1180 {
		t.Fatalf("total = %v, want 1180", got.TotalPayable)
	}
}

func TestComputeBreakdownDeterministic(t *testing.T) {
	product := businessCardProduct()
	sel := Selection{OptionIDs: []int64{12, 13}, AttributeValues: map[int64]int64{21: 212}}

	first, err := ComputeBreakdown(product, sel, 250)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	second, err := ComputeBreakdown(product, sel, 250)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("breakdown not deterministic:\nfirst  %#v\nsecond %#v", first, second)
	}
}

func TestComputeBreakdownMultiplierBeforeAdd(t *testing.T) {
	product := businessCardProduct()
	sel := Selection{AttributeValues: map[int64]int64{21: 212}}

	// Tier 100-499 puts the unit at 90; textured paper multiplies by 1.1
	// first (99) and adds 3 after (102).
	got, err := ComputeBreakdown(product, sel, 100)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if got.UnitPrice != 102 {
		t.Fatalf("unit = %v, want 102 (multiplier before flat add)", got.UnitPrice)
	}
	if got.Subtotal != 10200 {
		t.Fatalf("subtotal = %v, want 10200", got.Subtotal)
	}
}

func TestComputeBreakdownQuantityTier(t *testing.T) {
	product := businessCardProduct()

	cases := []struct {
		quantity int
		unit     float64
	}{
		{50, 100},   // below every tier, base price holds
		{100, 90},   // tier lower bound inclusive
		{499, 90},   // tier upper bound inclusive
		{500, 80},   // next tier
		{1500, 100}, // above every tier, no discount
	}
	for _, tc := range cases {
		got, err := ComputeBreakdown(product, Selection{}, tc.quantity)
		if err != nil {
			t.Fatalf("qty %d: %v", tc.quantity, err)
		}
		if got.UnitPrice != tc.unit {
			t.Fatalf("qty %d: unit = %v, want %v", tc.quantity, got.UnitPrice, tc.unit)
		}
	}
}

func TestComputeBreakdownDesignCharge(t *testing.T) {
	product := catalog.Product{BasePrice: 10, GSTPercentage: 18, AdditionalDesignCharge: 150}

	got, err := ComputeBreakdown(product, Selection{}, 20)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// 10*20 + 150 one-time, not 10*20 + 150*20.
	if got.Subtotal != 350 {
		t.Fatalf("subtotal = %v, want 350", got.Subtotal)
	}
	if got.GSTAmount != 63 {
		t.Fatalf("gst = %v, want 63", got.GSTAmount)
	}
	if got.TotalPayable != 413 {
		t.Fatalf("total = %v, want 413", got.TotalPayable)
	}
}

func TestComputeBreakdownRejectsInvalidQuantity(t *testing.T) {
	product := businessCardProduct()
	for _, quantity := range []int{0, -1} {
		if _, err := ComputeBreakdown(product, Selection{}, quantity); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("qty %d: expected ErrInvalidQuantity, got %v", quantity, err)
		}
	}
}

func TestComputeBreakdownRejectsUnknownSelection(t *testing.T) {
	product := businessCardProduct()

	_, err := ComputeBreakdown(product, Selection{OptionIDs: []int64{999}}, 10)
	if !errors.Is(err, ErrUnknownSelection) {
		t.Fatalf("expected ErrUnknownSelection for option, got %v", err)
	}

	_, err = ComputeBreakdown(product, Selection{AttributeValues: map[int64]int64{21: 999}}, 10)
	if !errors.Is(err, ErrUnknownSelection) {
		t.Fatalf("expected ErrUnknownSelection for attribute value, got %v", err)
	}
}

func TestComputeBreakdownAtUsesResolvedBase(t *testing.T) {
	product := businessCardProduct()
	seed := []AppliedModifier{{
		Type:         AdjustPriceBook,
		Value:        85,
		Source:       "ZONE:north",
		BeforeAmount: 100,
		AfterAmount:  85,
	}}

	got, err := ComputeBreakdownAt(product, 85, seed, Selection{}, 200)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// Resolved base wins; the 100-499 quantity tier must not reapply.
	if got.UnitPrice != 85 {
		t.Fatalf("unit = %v, want 85", got.UnitPrice)
	}
	if len(got.Applied) != 1 || got.Applied[0].Source != "ZONE:north" {
		t.Fatalf("expected seeded audit trail to survive, got %#v", got.Applied)
	}
}
