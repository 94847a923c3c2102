package timeline

import (
	"sort"
	"time"
)

// State is the render state of a single timeline stage.
type State string

const (
	StateCompleted  State = "completed"
	StateInProgress State = "in_progress"
	StatePending    State = "pending"
)

// Stage is one row of the reconstructed order timeline.
type Stage struct {
	Label string     `json:"label"`
	State State      `json:"state"`
	At    *time.Time `json:"timestamp,omitempty"`
}

// DepartmentRecord is the production-side input to the reconstruction.
type DepartmentRecord struct {
	Name        string
	Sequence    int
	Status      string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// CourierEvent is one webhook entry from the shipping feed. Status is
// vendor free text; entries may repeat or arrive out of order.
type CourierEvent struct {
	Status    string
	Location  string
	Timestamp time.Time
}

// Input carries everything the engine reads. The engine never mutates it
// and never touches storage.
type Input struct {
	CreatedAt         time.Time
	Departments       []DepartmentRecord
	CourierEvents     []CourierEvent
	CourierStatus     string
	DeliveredAt       *time.Time
	EstimatedDelivery *time.Time
}

// Build reconstructs the ordered stage list for an order. It never fails:
// missing or malformed records degrade to fewer or pending stages so a
// partially populated legacy order still renders.
func Build(in Input) []Stage {
	stages := make([]Stage, 0, 2+len(in.Departments)+len(in.CourierEvents))
	createdAt := in.CreatedAt
	stages = append(stages, Stage{Label: "Order Placed", State: StateCompleted, At: &createdAt})

	stages = append(stages, departmentStages(in.Departments)...)

	courier, deliveredInFeed := courierStages(in)
	stages = append(stages, courier...)

	if !deliveredInFeed {
		stages = append(stages, terminalStage(in))
	}
	return stages
}

func departmentStages(departments []DepartmentRecord) []Stage {
	if len(departments) == 0 {
		return []Stage{{Label: "Production", State: StatePending}}
	}
	sorted := make([]DepartmentRecord, len(departments))
	copy(sorted, departments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Sequence < sorted[j].Sequence
	})

	stages := make([]Stage, 0, len(sorted))
	for _, dept := range sorted {
		stage := Stage{Label: dept.Name, State: StatePending}
		switch dept.Status {
		case "completed":
			stage.State = StateCompleted
			stage.At = dept.CompletedAt
		case "in_progress":
			stage.State = StateInProgress
			stage.At = dept.StartedAt
		}
		stages = append(stages, stage)
	}
	return stages
}

type rankedEvent struct {
	info StatusInfo
	at   time.Time
}

// courierStages renders the shipping feed. Entries sort by rank with
// timestamp as tiebreaker; everything strictly below the maximum rank is
// forced completed regardless of its own fields, because a later stage in
// the feed proves the earlier one happened. Only the final entry may show
// in_progress, and a scheduled sub-status always renders pending since a
// booked-but-not-executed action is not underway.
func courierStages(in Input) ([]Stage, bool) {
	events := rankEvents(in)
	if len(events) == 0 {
		if allDepartmentsComplete(in.Departments) {
			return []Stage{{Label: "Shipment / Awaiting Pickup", State: StatePending}}, false
		}
		return nil, false
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].info.Rank != events[j].info.Rank {
			return events[i].info.Rank < events[j].info.Rank
		}
		return events[i].at.Before(events[j].at)
	})
	events = dedupeByLabel(events)

	delivered := in.DeliveredAt != nil
	stages := make([]Stage, 0, len(events))
	deliveredInFeed := false
	for i, event := range events {
		stage := Stage{Label: event.info.Label, State: StateCompleted}
		if !event.at.IsZero() {
			at := event.at
			stage.At = &at
		}
		if event.info.Rank >= RankDelivered {
			deliveredInFeed = true
		}
		last := i == len(events)-1
		if last && !delivered && event.info.Rank < RankDelivered {
			if event.info.Scheduled {
				stage.State = StatePending
			} else {
				stage.State = StateInProgress
			}
		}
		stages = append(stages, stage)
	}
	return stages, deliveredInFeed
}

func rankEvents(in Input) []rankedEvent {
	events := make([]rankedEvent, 0, len(in.CourierEvents))
	for _, event := range in.CourierEvents {
		events = append(events, rankedEvent{info: ClassifyStatus(event.Status), at: event.Timestamp})
	}
	if len(events) == 0 && in.CourierStatus != "" {
		events = append(events, rankedEvent{info: ClassifyStatus(in.CourierStatus)})
	}
	return events
}

// dedupeByLabel collapses re-delivered or corrected webhooks that map to
// the same stage, keeping the earliest occurrence in sort order.
func dedupeByLabel(events []rankedEvent) []rankedEvent {
	seen := make(map[string]bool, len(events))
	out := events[:0]
	for _, event := range events {
		if seen[event.info.Label] {
			continue
		}
		seen[event.info.Label] = true
		out = append(out, event)
	}
	return out
}

func allDepartmentsComplete(departments []DepartmentRecord) bool {
	if len(departments) == 0 {
		return false
	}
	for _, dept := range departments {
		if dept.Status != "completed" {
			return false
		}
	}
	return true
}

// terminalStage synthesizes the Delivered stage when the feed never said
// so explicitly, or a pending estimate when the order is still moving.
func terminalStage(in Input) Stage {
	if in.DeliveredAt != nil {
		return Stage{Label: "Delivered", State: StateCompleted, At: in.DeliveredAt}
	}
	return Stage{Label: "Estimated Delivery", State: StatePending, At: in.EstimatedDelivery}
}
