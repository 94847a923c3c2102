package orders

import (
	"time"

	"github.com/printforge/printforge/internal/pricing"
)

// Order statuses. Orders are never deleted; cancellation and rejection
// are soft terminal states.
const (
	StatusRequest    = "request"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusRejected   = "rejected"
)

// Payment statuses, written only by the payment webhook.
const (
	PaymentPending           = "PENDING"
	PaymentPartial           = "PARTIAL"
	PaymentCompleted         = "COMPLETED"
	PaymentFailed            = "FAILED"
	PaymentRefunded          = "REFUNDED"
	PaymentPartiallyRefunded = "PARTIALLY_REFUNDED"
)

// PriceSnapshot freezes the charged price at creation time. It is written
// exactly once; nothing in this package updates it afterwards, which is
// what protects customers from retroactive repricing.
type PriceSnapshot struct {
	BasePrice     float64                   `json:"base_price"`
	UnitPrice     float64                   `json:"unit_price"`
	Quantity      int                       `json:"quantity"`
	Applied       []pricing.AppliedModifier `json:"applied_modifiers"`
	Subtotal      float64                   `json:"subtotal"`
	GSTPercentage float64                   `json:"gst_percentage"`
	GSTAmount     float64                   `json:"gst_amount"`
	TotalPayable  float64                   `json:"total_payable"`
	Currency      string                    `json:"currency"`
	CalculatedAt  time.Time                 `json:"calculated_at"`
}

// SnapshotFromBreakdown copies a computed breakdown into its frozen form.
func SnapshotFromBreakdown(b pricing.Breakdown, at time.Time) PriceSnapshot {
	applied := make([]pricing.AppliedModifier, len(b.Applied))
	copy(applied, b.Applied)
	return PriceSnapshot{
		BasePrice:     b.BasePrice,
		UnitPrice:     b.UnitPrice,
		Quantity:      b.Quantity,
		Applied:       applied,
		Subtotal:      b.Subtotal,
		GSTPercentage: b.GSTPercentage,
		GSTAmount:     b.GSTAmount,
		TotalPayable:  b.TotalPayable,
		Currency:      b.Currency,
		CalculatedAt:  at,
	}
}

// Customer is the buyer's contact block on an order.
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Pincode string `json:"pincode"`
}

// Order is the aggregate root for one custom print job.
type Order struct {
	ID                int64             `json:"id"`
	OrderNumber       string            `json:"order_number"`
	ProductID         int64             `json:"product_id"`
	Quantity          int               `json:"quantity"`
	Selection         pricing.Selection `json:"selection"`
	NeedDesigner      bool              `json:"need_designer"`
	ArtworkURL        string            `json:"artwork_url,omitempty"`
	Customer          Customer          `json:"customer"`
	Status            string            `json:"status"`
	PaymentStatus     string            `json:"payment_status"`
	PriceSnapshot     *PriceSnapshot    `json:"price_snapshot,omitempty"`
	ZoneID            *int64            `json:"zone_id,omitempty"`
	SegmentID         *int64            `json:"segment_id,omitempty"`
	AWBCode           string            `json:"awb_code,omitempty"`
	CourierPartner    string            `json:"courier_partner,omitempty"`
	CourierStatus     string            `json:"courier_status,omitempty"`
	CourierCharges    float64           `json:"courier_charges,omitempty"`
	ProductionStart   *time.Time        `json:"production_start_date,omitempty"`
	ProductionEnd     *time.Time        `json:"production_end_date,omitempty"`
	EstimatedDelivery *time.Time        `json:"estimated_delivery_date,omitempty"`
	DeliveredAt       *time.Time        `json:"delivered_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Terminal reports whether the order reached a soft terminal state.
func (o Order) Terminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusCancelled || o.Status == StatusRejected
}

// allowedTransitions guards status moves; everything else is rejected.
var allowedTransitions = map[string][]string{
	StatusRequest:    {StatusProcessing, StatusCancelled, StatusRejected},
	StatusProcessing: {StatusCompleted, StatusCancelled},
}

func transitionAllowed(from, to string) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
