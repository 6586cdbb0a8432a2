package domain

import "time"

// NodeType enumerates the kinds of participants an ownership structure can contain.
type NodeType string

const (
	NodeTypeHousehold   NodeType = "household"
	NodeTypeTrust       NodeType = "trust"
	NodeTypeEntity      NodeType = "entity"
	NodeTypePartnership NodeType = "partnership"
	NodeTypeSPV         NodeType = "spv"
	NodeTypeAccount     NodeType = "account"
	NodeTypeAsset       NodeType = "asset"
)

// Valid reports whether the node type is one of the supported values.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeHousehold, NodeTypeTrust, NodeTypeEntity, NodeTypePartnership,
		NodeTypeSPV, NodeTypeAccount, NodeTypeAsset:
		return true
	}
	return false
}

// Label returns the display name used in outbound projections.
func (t NodeType) Label() string {
	switch t {
	case NodeTypeHousehold:
		return "Household"
	case NodeTypeTrust:
		return "Trust"
	case NodeTypeEntity:
		return "Legal Entity"
	case NodeTypePartnership:
		return "Partnership"
	case NodeTypeSPV:
		return "SPV"
	case NodeTypeAccount:
		return "Account"
	case NodeTypeAsset:
		return "Asset"
	default:
		return string(t)
	}
}

// ExternalRef points at a record held by an external master-data system,
// e.g. a natural person maintained outside the ownership structure.
type ExternalRef struct {
	Type string
	ID   string
}

// OwnershipNode is a single participant in an ownership structure. The engine
// never mutates these records; callers own them.
type OwnershipNode struct {
	ID           string
	ClientID     string
	Name         string
	Type         NodeType
	Jurisdiction string
	ExternalRef  *ExternalRef
	Status       string
	Notes        string
	Value        *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Person identifies a natural person for UBO computation. ExternalID matches
// the node-side ExternalRef.ID when the person is represented in the graph.
type Person struct {
	ID         string
	ExternalID string
	Name       string
}

// Structure bundles all nodes and links recorded for a client.
type Structure struct {
	ClientID string
	Nodes    []OwnershipNode
	Links    []OwnershipLink
}
