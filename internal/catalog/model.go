// Package catalog provides printable product definitions.
package catalog

import (
	"time"
)

// Product represents a configurable printable product.
type Product struct {
	ID                     int64              `json:"id"`
	SKU                    string             `json:"sku"`
	Name                   string             `json:"name"`
	Description            *string            `json:"description,omitempty"`
	BasePrice              float64            `json:"base_price"`
	GSTPercentage          float64            `json:"gst_percentage"`
	AdditionalDesignCharge float64            `json:"additional_design_charge"`
	Options                []Option           `json:"options,omitempty"`
	Attributes             []DynamicAttribute `json:"attributes,omitempty"`
	QuantityTiers          []QuantityTier     `json:"quantity_tiers,omitempty"`
	IsActive               bool               `json:"is_active"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// Option is a selectable product option such as a finish or a shape.
// Group distinguishes mutually exclusive choices (finish, shape) from
// stackable add-ons.
type Option struct {
	ID       int64   `json:"id"`
	Group    string  `json:"group"`
	Name     string  `json:"name"`
	PriceAdd float64 `json:"price_add"`
}

// DynamicAttribute is an admin-defined product axis (paper weight,
// lamination, corner style) with priced values.
type DynamicAttribute struct {
	ID              int64            `json:"id"`
	AttributeTypeID int64            `json:"attribute_type_id"`
	Name            string           `json:"name"`
	Values          []AttributeValue `json:"values"`
}

// AttributeValue is one allowed value of a dynamic attribute.
// A zero PriceMultiplier means the value declares no multiplier.
type AttributeValue struct {
	ID              int64   `json:"id"`
	Value           string  `json:"value"`
	PriceAdd        float64 `json:"price_add"`
	PriceMultiplier float64 `json:"price_multiplier,omitempty"`
}

// QuantityTier overrides the per-unit base price for quantities within
// [MinQuantity, MaxQuantity]. Tiers are non-overlapping by construction.
type QuantityTier struct {
	MinQuantity int     `json:"min_quantity"`
	MaxQuantity int     `json:"max_quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// TierFor returns the quantity tier containing quantity, if any.
func (p Product) TierFor(quantity int) (QuantityTier, bool) {
	for _, tier := range p.QuantityTiers {
		if quantity >= tier.MinQuantity && quantity <= tier.MaxQuantity {
			return tier, true
		}
	}
	return QuantityTier{}, false
}

// OptionByID returns the option with the given id.
func (p Product) OptionByID(id int64) (Option, bool) {
	for _, opt := range p.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// AttributeValueByID returns the value of the given attribute.
func (p Product) AttributeValueByID(attributeID, valueID int64) (AttributeValue, bool) {
	for _, attr := range p.Attributes {
		if attr.ID != attributeID {
			continue
		}
		for _, val := range attr.Values {
			if val.ID == valueID {
				return val, true
			}
		}
	}
	return AttributeValue{}, false
}
