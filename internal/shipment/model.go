package shipment

import "time"

// CourierTimelineEntry is one row of the append-only webhook feed.
type CourierTimelineEntry struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Status    string    `json:"status"`
	Location  string    `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CourierOption is one serviceable courier returned for a lane.
type CourierOption struct {
	CourierID     int64   `json:"courier_id"`
	CourierName   string  `json:"courier_name"`
	EstimatedDays int     `json:"estimated_days"`
	Rate          float64 `json:"rate"`
}

// EstimateDeliveryDate adds the courier's transit estimate to the
// production end date.
func EstimateDeliveryDate(productionEnd time.Time, estimatedDays int) time.Time {
	return productionEnd.AddDate(0, 0, estimatedDays)
}
