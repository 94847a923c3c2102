package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printforge/printforge/internal/production"
	"github.com/printforge/printforge/internal/shipment"
	"github.com/printforge/printforge/internal/timeline"
)

type memProductionRepo struct {
	statuses []production.DepartmentStatus
}

func (m *memProductionRepo) ListDepartments(context.Context) ([]production.Department, error) {
	return nil, nil
}

func (m *memProductionRepo) ListByOrder(_ context.Context, orderID int64) ([]production.DepartmentStatus, error) {
	var out []production.DepartmentStatus
	for _, status := range m.statuses {
		if status.OrderID == orderID {
			out = append(out, status)
		}
	}
	return out, nil
}

func (m *memProductionRepo) ApplyAction(context.Context, int64, int64, production.DecideFunc) (production.DepartmentStatus, error) {
	return production.DepartmentStatus{}, nil
}

type memCourierRepo struct {
	entries []shipment.CourierTimelineEntry
}

func (m *memCourierRepo) Append(_ context.Context, entry shipment.CourierTimelineEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memCourierRepo) ListByOrder(_ context.Context, orderID int64) ([]shipment.CourierTimelineEntry, error) {
	var out []shipment.CourierTimelineEntry
	for _, entry := range m.entries {
		if entry.OrderID == orderID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func TestTimelineBuilderAssemblesAllSources(t *testing.T) {
	repo := newMemOrderRepo()
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	started := created.Add(2 * time.Hour)
	repo.orders[1] = Order{ID: 1, OrderNumber: "PF-2503-AAAA1111", CreatedAt: created, Status: StatusProcessing}

	productionRepo := &memProductionRepo{statuses: []production.DepartmentStatus{
		{OrderID: 1, DepartmentName: "Design", Sequence: 1, Status: production.StatusCompleted, CompletedAt: &started},
		{OrderID: 1, DepartmentName: "Printing", Sequence: 2, Status: production.StatusInProgress, StartedAt: &started},
	}}
	courierRepo := &memCourierRepo{entries: []shipment.CourierTimelineEntry{
		{OrderID: 1, Status: "Pickup Scheduled", Timestamp: created.Add(30 * time.Hour)},
	}}

	builder := NewTimelineBuilder(repo, productionRepo, courierRepo, nil)
	stages, err := builder.Build(context.Background(), 1)
	require.NoError(t, err)

	labels := make([]string, 0, len(stages))
	for _, stage := range stages {
		labels = append(labels, stage.Label)
	}
	assert.Equal(t, []string{"Order Placed", "Design", "Printing", "Pickup Scheduled", "Estimated Delivery"}, labels)

	pickup := stages[3]
	assert.Equal(t, timeline.StatePending, pickup.State, "scheduled pickup renders pending")
}

func TestTimelineBuilderUnknownOrder(t *testing.T) {
	builder := NewTimelineBuilder(newMemOrderRepo(), &memProductionRepo{}, &memCourierRepo{}, nil)
	_, err := builder.Build(context.Background(), 404)
	require.ErrorIs(t, err, ErrOrderNotFound)
}
