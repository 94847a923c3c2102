package timeline

import "strings"

// Courier progression ranks. Webhook feeds are unordered free text, so
// progress is judged by rank, never by timestamp alone.
const (
	RankUnknown        = 0
	RankPickupSchedule = 1
	RankPickedUp       = 2
	RankShipped        = 3
	RankInTransit      = 4
	RankOutForDelivery = 5
	RankDelivered      = 6
	RankRTO            = 7
)

// StatusInfo is the normalized view of a raw courier status string.
type StatusInfo struct {
	Label     string
	Rank      int
	Scheduled bool
}

var statusTable = map[string]StatusInfo{
	"pickup scheduled":   {Label: "Pickup Scheduled", Rank: RankPickupSchedule, Scheduled: true},
	"out for pickup":     {Label: "Out For Pickup", Rank: RankPickupSchedule},
	"picked up":          {Label: "Picked Up", Rank: RankPickedUp},
	"pickup complete":    {Label: "Picked Up", Rank: RankPickedUp},
	"shipped":            {Label: "Shipped", Rank: RankShipped},
	"dispatched":         {Label: "Shipped", Rank: RankShipped},
	"in transit":         {Label: "In Transit", Rank: RankInTransit},
	"reached hub":        {Label: "In Transit", Rank: RankInTransit},
	"out for delivery":   {Label: "Out For Delivery", Rank: RankOutForDelivery},
	"delivery scheduled": {Label: "Delivery Scheduled", Rank: RankOutForDelivery, Scheduled: true},
	"delivered":          {Label: "Delivered", Rank: RankDelivered},
	"rto":                {Label: "Returned To Origin", Rank: RankRTO},
	"rto initiated":      {Label: "Returned To Origin", Rank: RankRTO},
	"rto delivered":      {Label: "Returned To Origin", Rank: RankRTO},
}

// ClassifyStatus maps a raw courier status to its label and rank. Unknown
// statuses are formatted for display at rank 0 so they never move the
// progress bar past where the known feed says we are.
func ClassifyStatus(raw string) StatusInfo {
	key := normalizeStatus(raw)
	if info, ok := statusTable[key]; ok {
		return info
	}
	return StatusInfo{Label: titleCase(key), Rank: RankUnknown}
}

func normalizeStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
