package timeline

import (
	"testing"
	"time"
)

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func tp(d time.Duration) *time.Time {
	t := base.Add(d)
	return &t
}

func stageByLabel(stages []Stage, label string) (Stage, bool) {
	for _, stage := range stages {
		if stage.Label == label {
			return stage, true
		}
	}
	return Stage{}, false
}

func TestBuildBareOrder(t *testing.T) {
	stages := Build(Input{CreatedAt: base, EstimatedDelivery: tp(96 * time.Hour)})

	if len(stages) != 3 {
		t.Fatalf("stages = %d, want 3: %#v", len(stages), stages)
	}
	if stages[0].Label != "Order Placed" || stages[0].State != StateCompleted {
		t.Fatalf("unexpected first stage %#v", stages[0])
	}
	if stages[1].Label != "Production" || stages[1].State != StatePending {
		t.Fatalf("expected pending production placeholder, got %#v", stages[1])
	}
	if stages[2].Label != "Estimated Delivery" || stages[2].State != StatePending {
		t.Fatalf("unexpected terminal stage %#v", stages[2])
	}
}

func TestBuildDepartmentsFollowSequenceOrder(t *testing.T) {
	in := Input{
		CreatedAt: base,
		Departments: []DepartmentRecord{
			{Name: "Quality Check", Sequence: 3, Status: "pending"},
			{Name: "Design", Sequence: 1, Status: "completed", CompletedAt: tp(2 * time.Hour)},
			{Name: "Printing", Sequence: 2, Status: "in_progress", StartedAt: tp(3 * time.Hour)},
		},
	}
	stages := Build(in)

	want := []struct {
		label string
		state State
	}{
		{"Order Placed", StateCompleted},
		{"Design", StateCompleted},
		{"Printing", StateInProgress},
		{"Quality Check", StatePending},
		{"Estimated Delivery", StatePending},
	}
	if len(stages) != len(want) {
		t.Fatalf("stages = %d, want %d", len(stages), len(want))
	}
	for i, w := range want {
		if stages[i].Label != w.label || stages[i].State != w.state {
			t.Fatalf("stage %d = %s/%s, want %s/%s", i, stages[i].Label, stages[i].State, w.label, w.state)
		}
	}
}

func TestBuildPausedDepartmentRendersPending(t *testing.T) {
	in := Input{
		CreatedAt:   base,
		Departments: []DepartmentRecord{{Name: "Printing", Sequence: 1, Status: "paused", StartedAt: tp(time.Hour)}},
	}
	stage, ok := stageByLabel(Build(in), "Printing")
	if !ok || stage.State != StatePending {
		t.Fatalf("paused department should render pending, got %#v", stage)
	}
}

func TestBuildRankOverridesTimestamp(t *testing.T) {
	// Delivery confirmation arrived before the pickup webhook. Rank wins:
	// pickup shows completed, delivered shows completed, in that order.
	in := Input{
		CreatedAt: base,
		Departments: []DepartmentRecord{
			{Name: "Printing", Sequence: 1, Status: "completed", CompletedAt: tp(time.Hour)},
		},
		CourierEvents: []CourierEvent{
			{Status: "Pickup Scheduled", Timestamp: base.Add(48 * time.Hour)},
			{Status: "Delivered", Timestamp: base.Add(24 * time.Hour)},
		},
	}
	stages := Build(in)

	pickup, ok := stageByLabel(stages, "Pickup Scheduled")
	if !ok || pickup.State != StateCompleted {
		t.Fatalf("pickup must be forced completed below max rank, got %#v", pickup)
	}
	delivered, ok := stageByLabel(stages, "Delivered")
	if !ok || delivered.State != StateCompleted {
		t.Fatalf("delivered stage missing or not completed: %#v", stages)
	}
	last := stages[len(stages)-1]
	if last.Label != "Delivered" {
		t.Fatalf("delivered must be the terminal stage, got %q", last.Label)
	}
}

func TestBuildScheduledLatestEventIsPending(t *testing.T) {
	in := Input{
		CreatedAt: base,
		CourierEvents: []CourierEvent{
			{Status: "pickup_scheduled", Timestamp: base.Add(24 * time.Hour)},
		},
	}
	stage, ok := stageByLabel(Build(in), "Pickup Scheduled")
	if !ok || stage.State != StatePending {
		t.Fatalf("a scheduled action is not in progress, got %#v", stage)
	}
}

func TestBuildUnknownStatusFormatsAndDisplays(t *testing.T) {
	in := Input{
		CreatedAt: base,
		CourierEvents: []CourierEvent{
			{Status: "handed to linehaul partner", Timestamp: base.Add(20 * time.Hour)},
			{Status: "In Transit", Timestamp: base.Add(30 * time.Hour)},
		},
	}
	stages := Build(in)

	unknown, ok := stageByLabel(stages, "Handed To Linehaul Partner")
	if !ok {
		t.Fatalf("unknown status must still display: %#v", stages)
	}
	if unknown.State != StateCompleted {
		t.Fatalf("rank 0 sits below In Transit and must be completed, got %s", unknown.State)
	}
	transit, _ := stageByLabel(stages, "In Transit")
	if transit.State != StateInProgress {
		t.Fatalf("latest known event should be in progress, got %s", transit.State)
	}
}

func TestBuildDuplicateWebhooksCollapse(t *testing.T) {
	in := Input{
		CreatedAt: base,
		CourierEvents: []CourierEvent{
			{Status: "shipped", Timestamp: base.Add(10 * time.Hour)},
			{Status: "Shipped", Timestamp: base.Add(10 * time.Hour)},
			{Status: "dispatched", Timestamp: base.Add(11 * time.Hour)},
		},
	}
	stages := Build(in)

	count := 0
	for _, stage := range stages {
		if stage.Label == "Shipped" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("duplicate shipped webhooks must collapse to one stage, got %d", count)
	}
}

func TestBuildSynthesizesAwaitingPickup(t *testing.T) {
	in := Input{
		CreatedAt: base,
		Departments: []DepartmentRecord{
			{Name: "Printing", Sequence: 1, Status: "completed", CompletedAt: tp(time.Hour)},
		},
	}
	if _, ok := stageByLabel(Build(in), "Shipment / Awaiting Pickup"); !ok {
		t.Fatal("expected synthesized awaiting-pickup stage after production completes")
	}
}

func TestBuildSynthesizesDeliveredFromOrderFlag(t *testing.T) {
	in := Input{
		CreatedAt:   base,
		DeliveredAt: tp(72 * time.Hour),
		CourierEvents: []CourierEvent{
			{Status: "out for delivery", Timestamp: base.Add(70 * time.Hour)},
		},
	}
	stages := Build(in)

	outFor, _ := stageByLabel(stages, "Out For Delivery")
	if outFor.State != StateCompleted {
		t.Fatalf("delivered orders have no in-progress courier stages, got %#v", outFor)
	}
	last := stages[len(stages)-1]
	if last.Label != "Delivered" || last.State != StateCompleted || last.At == nil {
		t.Fatalf("expected synthesized delivered terminal, got %#v", last)
	}
}

func TestBuildNoDuplicateDeliveredStage(t *testing.T) {
	in := Input{
		CreatedAt:   base,
		DeliveredAt: tp(72 * time.Hour),
		CourierEvents: []CourierEvent{
			{Status: "delivered", Timestamp: base.Add(72 * time.Hour)},
		},
	}
	stages := Build(in)

	count := 0
	for _, stage := range stages {
		if stage.Label == "Delivered" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("delivered stage emitted %d times, want 1", count)
	}
}

func TestBuildFallsBackToOrderCourierStatus(t *testing.T) {
	in := Input{CreatedAt: base, CourierStatus: "in_transit"}
	stage, ok := stageByLabel(Build(in), "In Transit")
	if !ok || stage.State != StateInProgress {
		t.Fatalf("expected synthesized in-transit stage from the order field, got %#v", stage)
	}
}

func TestBuildMonotonicAcrossSupersetInputs(t *testing.T) {
	first := Input{
		CreatedAt: base,
		Departments: []DepartmentRecord{
			{Name: "Design", Sequence: 1, Status: "completed", CompletedAt: tp(time.Hour)},
			{Name: "Printing", Sequence: 2, Status: "in_progress", StartedAt: tp(2 * time.Hour)},
		},
		CourierEvents: []CourierEvent{
			{Status: "shipped", Timestamp: base.Add(20 * time.Hour)},
		},
	}
	second := first
	second.Departments = append([]DepartmentRecord{}, first.Departments...)
	second.Departments[1].Status = "completed"
	second.Departments[1].CompletedAt = tp(5 * time.Hour)
	second.CourierEvents = append(append([]CourierEvent{}, first.CourierEvents...),
		CourierEvent{Status: "in transit", Timestamp: base.Add(26 * time.Hour)},
		CourierEvent{Status: "out for delivery", Timestamp: base.Add(40 * time.Hour)},
	)

	before := Build(first)
	after := Build(second)

	for _, stage := range before {
		if stage.State != StateCompleted {
			continue
		}
		got, ok := stageByLabel(after, stage.Label)
		if !ok {
			t.Fatalf("completed stage %q disappeared on superset input", stage.Label)
		}
		if got.State != StateCompleted {
			t.Fatalf("stage %q regressed from completed to %s", stage.Label, got.State)
		}
	}
}
