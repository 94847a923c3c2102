// Package books implements the virtual price book hierarchy: effective
// price resolution, combination modifiers and the admin conflict
// detection/resolution protocol.
package books

import "time"

// Level identifies a price book hierarchy level. More specific levels
// always win over less specific ones for the same (product, zone,
// segment) triple.
type Level string

const (
	LevelMaster      Level = "MASTER"
	LevelZone        Level = "ZONE"
	LevelZoneSegment Level = "ZONE_SEGMENT"
	LevelSingleCell  Level = "SINGLE_CELL"
)

// Specificity orders levels for resolution; higher wins.
func (l Level) Specificity() int {
	switch l {
	case LevelSingleCell:
		return 3
	case LevelZoneSegment:
		return 2
	case LevelZone:
		return 1
	case LevelMaster:
		return 0
	default:
		return -1
	}
}

// IsValid reports whether the level is one of the known hierarchy levels.
func (l Level) IsValid() bool {
	return l.Specificity() >= 0
}

// Entry is one price book cell: a product price at one hierarchy level.
type Entry struct {
	ID                int64     `json:"id"`
	Level             Level     `json:"level"`
	ZoneID            *int64    `json:"zone_id,omitempty"`
	SegmentID         *int64    `json:"segment_id,omitempty"`
	ProductID         int64     `json:"product_id"`
	Price             float64   `json:"price"`
	Available         bool      `json:"available"`
	UnavailableReason *string   `json:"unavailable_reason,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Zone is a geographic targeting unit.
type Zone struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"` // city, state, region, country
}

// Segment is a user-classification unit (retail, bulk, reseller).
type Segment struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Modifier scopes, applied GLOBAL first and ZONE last so the most
// specific rule layers on top of the running price.
type Scope string

const (
	ScopeGlobal  Scope = "GLOBAL"
	ScopeProduct Scope = "PRODUCT"
	ScopeSegment Scope = "SEGMENT"
	ScopeZone    Scope = "ZONE"
)

var scopeApplyOrder = []Scope{ScopeGlobal, ScopeProduct, ScopeSegment, ScopeZone}

// Condition operators form a closed set validated at the API boundary.
type Operator string

const (
	OpEq  Operator = "eq"
	OpNeq Operator = "neq"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
	OpIn  Operator = "in"
)

// Condition fields evaluated against a resolution context.
const (
	FieldZone     = "zone_id"
	FieldSegment  = "segment_id"
	FieldProduct  = "product_id"
	FieldQuantity = "quantity"
)

// Condition is one clause of a combination modifier.
type Condition struct {
	Field    string    `json:"field"`
	Operator Operator  `json:"operator"`
	Value    float64   `json:"value"`
	Values   []float64 `json:"values,omitempty"` // for the in operator
}

// EffectKind and direction of a modifier's price adjustment.
type EffectKind string

const (
	EffectPercent EffectKind = "percent"
	EffectFlat    EffectKind = "flat"
)

// Modifier is a conditional price adjustment rule. Position fixes the
// declaration order within a scope.
type Modifier struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Scope      Scope       `json:"scope"`
	Logic      string      `json:"logic"` // AND or OR
	Conditions []Condition `json:"conditions"`
	Effect     EffectKind  `json:"effect"`
	Decrease   bool        `json:"decrease"`
	Value      float64     `json:"value"`
	Position   int         `json:"position"`
	IsActive   bool        `json:"is_active"`
}

// ResolutionContext carries the request context a price is resolved for.
// No ambient state: zone, segment and quantity arrive explicitly.
type ResolutionContext struct {
	ZoneID    *int64 `json:"zone_id,omitempty"`
	SegmentID *int64 `json:"segment_id,omitempty"`
	Quantity  int    `json:"quantity"`
}
