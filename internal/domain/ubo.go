package domain

import "time"

// OwnershipPath is one chain of links from a person's starting node to a
// target, with the multiplicative percentage it contributes.
type OwnershipPath struct {
	NodeIDs []string
	Pct     float64
}

// UboRecord captures a natural person's aggregated beneficial ownership of a
// single target node, summed across every discovered path.
type UboRecord struct {
	PersonRef           string
	PersonName          string
	RootHouseholdNodeID string
	TargetNodeID        string
	ComputedPct         float64
	Paths               []OwnershipPath
	SourceLinkIDs       []string
	ComputedAt          time.Time
}

// DirectOwner is an immediate one-hop owner of a node.
type DirectOwner struct {
	NodeID       string
	Name         string
	LinkID       string
	OwnershipPct float64
}

// UboIssueOver100 flags a target whose qualifying UBO records sum past 100%.
const UboIssueOver100 = "over_100"

// UboIssue is an advisory finding raised while validating UBO results.
type UboIssue struct {
	Type         string
	TargetNodeID string
	TotalPct     float64
	Message      string
}
