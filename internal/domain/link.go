package domain

import "time"

// OwnershipLink is a directed edge from owner to owned. OwnershipPct and
// ProfitSharePct are independent percentages in [0, 100].
type OwnershipLink struct {
	ID             string
	ClientID       string
	FromNodeID     string
	ToNodeID       string
	OwnershipPct   float64
	ProfitSharePct *float64
	EffectiveFrom  time.Time
	EffectiveTo    *time.Time
	SourceRef      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
