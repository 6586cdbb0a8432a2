package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/clearstake/ownergraph/backend/internal/domain"
)

// DefaultMinUboPct is the reporting threshold applied when the caller does
// not supply one, matching the common 25% beneficial-ownership rule.
const DefaultMinUboPct = 25.0

// ErrMissingHouseholdNode indicates the fallback household anchor was not
// provided.
var ErrMissingHouseholdNode = errors.New("household node id is required")

// UboOptions parameterizes a UBO computation.
type UboOptions struct {
	ClientID        string
	HouseholdNodeID string
	MinPctThreshold float64
	MaxPathDepth    int
}

// ExternalRefTypePerson is the external-reference type linking a graph node
// to a natural person in master data.
const ExternalRefTypePerson = "person"

// ComputeUbo enumerates ownership paths from each person's starting node to
// every entity-like target and aggregates fractional ownership across all
// paths. A person reaching the same target through two chains has the
// contributions summed, not maxed. Records below the threshold are dropped.
func ComputeUbo(g *OwnershipGraph, persons []domain.Person, opts UboOptions) ([]domain.UboRecord, error) {
	if opts.HouseholdNodeID == "" {
		return nil, ErrMissingHouseholdNode
	}
	threshold := opts.MinPctThreshold
	if threshold <= 0 {
		threshold = DefaultMinUboPct
	}
	depth := opts.MaxPathDepth
	if depth <= 0 {
		depth = DefaultMaxPathDepth
	}

	targets := uboTargets(g)
	now := time.Now().UTC()

	var records []domain.UboRecord
	for _, person := range persons {
		startID := resolvePersonNode(g, person)
		if startID == "" {
			// No dedicated node for this person: treat them as an implicit
			// member of the scoping household.
			startID = opts.HouseholdNodeID
		}
		if _, ok := g.Nodes[startID]; !ok {
			continue
		}

		for _, targetID := range targets {
			if targetID == startID {
				continue
			}
			paths := FindPaths(g, startID, targetID, depth)
			if len(paths) == 0 {
				continue
			}

			var total float64
			var ownershipPaths []domain.OwnershipPath
			linkSet := make(map[string]bool)
			for _, p := range paths {
				total += p.Pct
				ownershipPaths = append(ownershipPaths, domain.OwnershipPath{
					NodeIDs: p.NodeIDs,
					Pct:     round2(p.Pct),
				})
				for _, linkID := range p.LinkIDs {
					linkSet[linkID] = true
				}
			}
			if total < threshold {
				continue
			}

			linkIDs := make([]string, 0, len(linkSet))
			for id := range linkSet {
				linkIDs = append(linkIDs, id)
			}
			sort.Strings(linkIDs)

			records = append(records, domain.UboRecord{
				PersonRef:           person.ID,
				PersonName:          person.Name,
				RootHouseholdNodeID: opts.HouseholdNodeID,
				TargetNodeID:        targetID,
				ComputedPct:         round2(total),
				Paths:               ownershipPaths,
				SourceLinkIDs:       linkIDs,
				ComputedAt:          now,
			})
		}
	}

	return records, nil
}

// ComputeDirectOwnership lists the immediate one-hop owners of a node with
// their raw link percentages, no aggregation.
func ComputeDirectOwnership(g *OwnershipGraph, targetNodeID string) []domain.DirectOwner {
	node, ok := g.Nodes[targetNodeID]
	if !ok {
		return nil
	}

	owners := make([]domain.DirectOwner, 0, len(node.In))
	for _, idx := range node.In {
		link := g.Links[idx]
		owner := g.Nodes[link.FromNodeID]
		owners = append(owners, domain.DirectOwner{
			NodeID:       link.FromNodeID,
			Name:         owner.Node.Name,
			LinkID:       link.ID,
			OwnershipPct: link.OwnershipPct,
		})
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].NodeID < owners[j].NodeID })
	return owners
}

// ValidateUboResults flags targets whose qualifying records sum past 100%.
// The check only sees records that cleared the reporting threshold, so a
// target over-owned through many small stakes slips through; that limitation
// is accepted rather than silently corrected.
func ValidateUboResults(records []domain.UboRecord) []domain.UboIssue {
	totals := make(map[string]float64)
	for _, record := range records {
		totals[record.TargetNodeID] += record.ComputedPct
	}

	targets := make([]string, 0, len(totals))
	for id := range totals {
		targets = append(targets, id)
	}
	sort.Strings(targets)

	var issues []domain.UboIssue
	for _, id := range targets {
		total := totals[id]
		if total > 100+overOwnershipTolerance {
			issues = append(issues, domain.UboIssue{
				Type:         domain.UboIssueOver100,
				TargetNodeID: id,
				TotalPct:     round2(total),
				Message:      fmt.Sprintf("UBO records for node %s total %.2f%%", id, total),
			})
		}
	}
	return issues
}

// uboTargets returns every entity-like node id in deterministic order.
func uboTargets(g *OwnershipGraph) []string {
	var targets []string
	for _, id := range g.NodeIDs() {
		switch g.Nodes[id].Node.Type {
		case domain.NodeTypeEntity, domain.NodeTypeTrust, domain.NodeTypePartnership, domain.NodeTypeSPV:
			targets = append(targets, id)
		}
	}
	return targets
}

// resolvePersonNode finds the graph node carrying the person's external
// reference, if any.
func resolvePersonNode(g *OwnershipGraph, person domain.Person) string {
	for _, id := range g.NodeIDs() {
		ref := g.Nodes[id].Node.ExternalRef
		if ref != nil && ref.Type == ExternalRefTypePerson && ref.ID == person.ExternalID {
			return id
		}
	}
	return ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
