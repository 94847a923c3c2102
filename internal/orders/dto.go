package orders

import "github.com/printforge/printforge/internal/shared"

// CreateOrderRequest is the checkout payload.
type CreateOrderRequest struct {
	ProductID       int64           `json:"product_id" validate:"required,gt=0"`
	Quantity        int             `json:"quantity" validate:"required,gt=0"`
	OptionIDs       []int64         `json:"option_ids" validate:"dive,gt=0"`
	AttributeValues map[int64]int64 `json:"attribute_values"`
	NeedDesigner    bool            `json:"need_designer"`
	ArtworkURL      string          `json:"artwork_url" validate:"omitempty,url"`
	ZoneID          *int64          `json:"zone_id" validate:"omitempty,gt=0"`
	SegmentID       *int64          `json:"segment_id" validate:"omitempty,gt=0"`
	PaymentMode     string          `json:"payment_mode" validate:"omitempty,oneof=PREPAID COD"`
	WeightKg        float64         `json:"weight_kg" validate:"omitempty,gt=0"`
	Customer        CustomerInput   `json:"customer" validate:"required"`
}

// CustomerInput carries the buyer's contact block at checkout.
type CustomerInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,min=8,max=20"`
	Address string `json:"address" validate:"required,max=1000"`
	Pincode string `json:"pincode" validate:"required,len=6,numeric"`
}

// UpdateStatusRequest moves an order between workflow states.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=processing completed cancelled rejected"`
	Notes  string `json:"notes" validate:"max=2000"`
}

// PaymentWebhookPayload is the gateway callback. Only PaymentStatus is
// ever written from it.
type PaymentWebhookPayload struct {
	EventID     string  `json:"event_id" validate:"required"`
	OrderNumber string  `json:"order_number" validate:"required"`
	Status      string  `json:"status" validate:"required"`
	Amount      float64 `json:"amount"`
}

// ListQuery filters the admin order list.
type ListQuery struct {
	Status  string
	Page    int
	PerPage int
}

// ListResponse pages the admin order list.
type ListResponse struct {
	Orders     []Order           `json:"orders"`
	Pagination shared.Pagination `json:"pagination"`
}
