package domain

import "time"

// MaskRules controls what a client-safe projection hides or simplifies.
// HideInternalNotes is always forced on when a view is produced, regardless of
// the caller's input.
type MaskRules struct {
	MaskAccountNumbers   bool
	MaskAssetValues      bool
	ExcludeNodeTypes     []NodeType
	ExcludeJurisdictions []string
	SimplifyPercentages  bool
	HideInternalNotes    bool
}

// ViewNode is the sanitized node shape included in a client-safe view.
type ViewNode struct {
	ID           string
	Name         string
	Type         NodeType
	TypeLabel    string
	Jurisdiction string
	Value        *float64
}

// ViewLink is the sanitized link shape included in a client-safe view.
type ViewLink struct {
	ID             string
	FromNodeID     string
	ToNodeID       string
	OwnershipPct   float64
	ProfitSharePct *float64
}

// ClientSafeView is a filtered, masked projection of an ownership structure
// approved for external distribution. Views are immutable once produced; a
// new publish creates a new view.
type ClientSafeView struct {
	ID          string
	ClientID    string
	ScopeNodeID string
	Nodes       []ViewNode
	Links       []ViewLink
	MaskRules   MaskRules
	PublishedAt time.Time
	PublishedBy string
}

// View issue severities.
const (
	ViewIssueError   = "error"
	ViewIssueWarning = "warning"
)

// ViewIssue is an advisory finding raised while validating a client-safe view.
type ViewIssue struct {
	Severity string
	Message  string
	NodeID   string
}

// ViewDiff is the set difference between two published views.
type ViewDiff struct {
	NodesAdded   []string
	NodesRemoved []string
	LinksAdded   []string
	LinksRemoved []string
}
