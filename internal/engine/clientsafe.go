package engine

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearstake/ownergraph/backend/internal/domain"
)

// Contract errors raised at the view-publishing boundary. Everything about
// the shape of the data itself is reported through ViewIssue instead.
var (
	ErrMissingScopeNode = errors.New("scope household node id is required")
	ErrMissingPublisher = errors.New("publishing user id is required")
	ErrMissingClientID  = errors.New("client id is required")
)

// digitRunPattern matches digit runs long enough to look like account
// numbers. Shorter runs (years, unit counts) are left alone.
var digitRunPattern = regexp.MustCompile(`\d{5,}`)

// NewClientSafeView produces an immutable, sanitized projection of the graph
// for external distribution. HideInternalNotes is forced on regardless of the
// caller's rules.
func NewClientSafeView(g *OwnershipGraph, scopeNodeID, userID, clientID string, rules domain.MaskRules) (domain.ClientSafeView, error) {
	if scopeNodeID == "" {
		return domain.ClientSafeView{}, ErrMissingScopeNode
	}
	if userID == "" {
		return domain.ClientSafeView{}, ErrMissingPublisher
	}
	if clientID == "" {
		return domain.ClientSafeView{}, ErrMissingClientID
	}
	rules.HideInternalNotes = true

	excludedTypes := make(map[domain.NodeType]bool, len(rules.ExcludeNodeTypes))
	for _, t := range rules.ExcludeNodeTypes {
		excludedTypes[t] = true
	}
	excludedJurisdictions := make(map[string]bool, len(rules.ExcludeJurisdictions))
	for _, j := range rules.ExcludeJurisdictions {
		excludedJurisdictions[j] = true
	}

	included := make(map[string]bool, len(g.Nodes))
	var nodes []domain.ViewNode
	for _, id := range g.NodeIDs() {
		node := g.Nodes[id].Node
		if excludedTypes[node.Type] || excludedJurisdictions[node.Jurisdiction] {
			continue
		}
		included[id] = true

		name := node.Name
		if rules.MaskAccountNumbers && node.Type == domain.NodeTypeAccount {
			name = maskDigitRuns(name)
		}
		var value *float64
		if node.Value != nil && !rules.MaskAssetValues {
			v := *node.Value
			value = &v
		}

		nodes = append(nodes, domain.ViewNode{
			ID:           id,
			Name:         name,
			Type:         node.Type,
			TypeLabel:    node.Type.Label(),
			Jurisdiction: node.Jurisdiction,
			Value:        value,
		})
	}

	var links []domain.ViewLink
	for _, link := range g.Links {
		if !included[link.FromNodeID] || !included[link.ToNodeID] {
			continue
		}
		ownership := link.OwnershipPct
		profit := link.ProfitSharePct
		if rules.SimplifyPercentages {
			ownership = roundToNearest5(ownership)
			if profit != nil {
				p := roundToNearest5(*profit)
				profit = &p
			}
		} else if profit != nil {
			p := *profit
			profit = &p
		}

		links = append(links, domain.ViewLink{
			ID:             link.ID,
			FromNodeID:     link.FromNodeID,
			ToNodeID:       link.ToNodeID,
			OwnershipPct:   ownership,
			ProfitSharePct: profit,
		})
	}

	return domain.ClientSafeView{
		ID:          uuid.NewString(),
		ClientID:    clientID,
		ScopeNodeID: scopeNodeID,
		Nodes:       nodes,
		Links:       links,
		MaskRules:   rules,
		PublishedAt: time.Now().UTC(),
		PublishedBy: userID,
	}, nil
}

// maskDigitRuns replaces each long digit run with X characters, preserving
// only the last four digits.
func maskDigitRuns(name string) string {
	return digitRunPattern.ReplaceAllStringFunc(name, func(run string) string {
		return strings.Repeat("X", len(run)-4) + run[len(run)-4:]
	})
}

func roundToNearest5(v float64) float64 {
	return math.Round(v/5) * 5
}

// ValidateClientSafeView checks a produced view for shapes that usually mean
// the mask rules cut too deep. Findings are advisory.
func ValidateClientSafeView(view domain.ClientSafeView) []domain.ViewIssue {
	var issues []domain.ViewIssue

	if len(view.Nodes) == 0 {
		issues = append(issues, domain.ViewIssue{
			Severity: domain.ViewIssueError,
			Message:  "view contains no nodes; nothing would be shared",
		})
		return issues
	}
	if len(view.Nodes) <= 1 {
		return issues
	}

	if len(view.Links) == 0 {
		issues = append(issues, domain.ViewIssue{
			Severity: domain.ViewIssueWarning,
			Message:  "view contains multiple nodes but no links between them",
		})
	}

	linked := make(map[string]bool)
	for _, link := range view.Links {
		linked[link.FromNodeID] = true
		linked[link.ToNodeID] = true
	}
	for _, node := range view.Nodes {
		if !linked[node.ID] {
			issues = append(issues, domain.ViewIssue{
				Severity: domain.ViewIssueWarning,
				Message:  fmt.Sprintf("node %q has no links in the published view", node.Name),
				NodeID:   node.ID,
			})
		}
	}

	return issues
}

// CompareViews diffs the node and link id sets of two published views. It is
// a pure set difference: ids added going old to new, and ids removed.
func CompareViews(oldView, newView domain.ClientSafeView) domain.ViewDiff {
	return domain.ViewDiff{
		NodesAdded:   idDiff(viewNodeIDs(newView), viewNodeIDs(oldView)),
		NodesRemoved: idDiff(viewNodeIDs(oldView), viewNodeIDs(newView)),
		LinksAdded:   idDiff(viewLinkIDs(newView), viewLinkIDs(oldView)),
		LinksRemoved: idDiff(viewLinkIDs(oldView), viewLinkIDs(newView)),
	}
}

func viewNodeIDs(view domain.ClientSafeView) map[string]bool {
	ids := make(map[string]bool, len(view.Nodes))
	for _, n := range view.Nodes {
		ids[n.ID] = true
	}
	return ids
}

func viewLinkIDs(view domain.ClientSafeView) map[string]bool {
	ids := make(map[string]bool, len(view.Links))
	for _, l := range view.Links {
		ids[l.ID] = true
	}
	return ids
}

// idDiff returns the ids present in a but not in b, sorted.
func idDiff(a, b map[string]bool) []string {
	var diff []string
	for id := range a {
		if !b[id] {
			diff = append(diff, id)
		}
	}
	sort.Strings(diff)
	return diff
}
