package service

import (
	"time"

	"github.com/clearstake/ownergraph/backend/internal/domain"
)

// NodeInput is the inbound payload for creating or updating an ownership node.
type NodeInput struct {
	ID           string
	ClientID     string
	Name         string
	Type         string
	Jurisdiction string
	ExternalRef  *ExternalRefInput
	Status       string
	Notes        string
	Value        *float64
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
}

// ExternalRefInput mirrors domain.ExternalRef for inbound payloads.
type ExternalRefInput struct {
	Type string
	ID   string
}

// LinkInput is the inbound payload for creating or updating an ownership link.
type LinkInput struct {
	ID             string
	ClientID       string
	FromNodeID     string
	ToNodeID       string
	OwnershipPct   float64
	ProfitSharePct *float64
	EffectiveFrom  *time.Time
	EffectiveTo    *time.Time
	SourceRef      string
	CreatedAt      *time.Time
	UpdatedAt      *time.Time
}

// PersonInput registers a natural person for UBO computation.
type PersonInput struct {
	ID         string
	ClientID   string
	ExternalID string
	Name       string
}

// UboParams parameterizes a UBO computation run.
type UboParams struct {
	ClientID        string
	HouseholdNodeID string
	MinPctThreshold float64
	MaxPathDepth    int
}

// PublishParams describes a client-safe view publication request.
type PublishParams struct {
	ClientID    string
	ScopeNodeID string
	PublishedBy string
	MaskRules   domain.MaskRules
}

// ListNodesParams defines filters for listing ownership nodes.
type ListNodesParams struct {
	ClientID     string
	Page         int
	PageSize     int
	Type         string
	Jurisdiction string
	Search       string
	SortField    string
	SortOrder    string
}
