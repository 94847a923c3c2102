package orders

import (
	"context"

	"github.com/printforge/printforge/internal/observability"
	"github.com/printforge/printforge/internal/production"
	"github.com/printforge/printforge/internal/shipment"
	"github.com/printforge/printforge/internal/timeline"
)

// TimelineBuilder assembles the reconstruction input from the three
// stores that own the pieces and hands it to the pure engine.
type TimelineBuilder struct {
	orders     Repository
	production production.Repository
	courier    shipment.Repository
	metrics    *observability.Metrics
}

// NewTimelineBuilder wires the timeline read path.
func NewTimelineBuilder(orders Repository, productionRepo production.Repository, courierRepo shipment.Repository, metrics *observability.Metrics) *TimelineBuilder {
	return &TimelineBuilder{orders: orders, production: productionRepo, courier: courierRepo, metrics: metrics}
}

// Build loads everything the engine reads and reconstructs the stages.
// Missing department or courier records are normal for young orders and
// degrade to pending stages, never to an error.
func (b *TimelineBuilder) Build(ctx context.Context, orderID int64) ([]timeline.Stage, error) {
	order, err := b.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	departments, err := b.production.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	courierEntries, err := b.courier.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	input := timeline.Input{
		CreatedAt:         order.CreatedAt,
		CourierStatus:     order.CourierStatus,
		DeliveredAt:       order.DeliveredAt,
		EstimatedDelivery: order.EstimatedDelivery,
	}
	for _, dept := range departments {
		input.Departments = append(input.Departments, timeline.DepartmentRecord{
			Name:        dept.DepartmentName,
			Sequence:    dept.Sequence,
			Status:      dept.Status,
			StartedAt:   dept.StartedAt,
			CompletedAt: dept.CompletedAt,
		})
	}
	for _, entry := range courierEntries {
		input.CourierEvents = append(input.CourierEvents, timeline.CourierEvent{
			Status:    entry.Status,
			Location:  entry.Location,
			Timestamp: entry.Timestamp,
		})
	}

	b.metrics.ObserveTimelineBuild()
	return timeline.Build(input), nil
}
