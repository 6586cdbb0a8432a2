// Package engine implements the ownership graph analysis engine: graph
// construction, structural diagnostics, UBO computation, and client-safe
// projections. Every exported function is a pure transformation of its inputs;
// nothing is cached or persisted between calls, so a built OwnershipGraph may
// be shared read-only across concurrent consumers.
package engine

import (
	"fmt"
	"sort"

	"github.com/clearstake/ownergraph/backend/internal/domain"
)

// DefaultMaxPathDepth bounds path enumeration when the caller does not supply
// a limit. Enumeration cost grows with branching factor to this power, so
// callers with dense structures should keep it low.
const DefaultMaxPathDepth = 10

// overOwnershipTolerance absorbs floating-point noise when summing incoming
// ownership percentages.
const overOwnershipTolerance = 0.01

// GraphNode wraps an input node with derived structure. In and Out index into
// the graph's shared link list.
type GraphNode struct {
	Node  domain.OwnershipNode
	Level int
	In    []int
	Out   []int
}

// OwnershipGraph is the immutable adjacency structure produced by BuildGraph.
// Links is the single owned edge list; nodes reference edges by index.
type OwnershipGraph struct {
	Nodes    map[string]*GraphNode
	Links    []domain.OwnershipLink
	Roots    []string
	Leaves   []string
	Loops    [][]string
	MaxDepth int
}

// Link returns the link at the given index.
func (g *OwnershipGraph) Link(idx int) domain.OwnershipLink {
	return g.Links[idx]
}

// NodeIDs returns all node ids in ascending order. Traversals iterate in this
// order so results are deterministic.
func (g *OwnershipGraph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BuildGraph assembles the adjacency structure from raw node and link records.
// Links referencing an unknown endpoint are dropped: partially loaded
// datasets are expected and a dangling edge simply cannot be laid out.
// Input slices are copied, never mutated.
func BuildGraph(nodes []domain.OwnershipNode, links []domain.OwnershipLink) *OwnershipGraph {
	g := &OwnershipGraph{
		Nodes: make(map[string]*GraphNode, len(nodes)),
	}

	for _, n := range nodes {
		g.Nodes[n.ID] = &GraphNode{Node: n, Level: -1}
	}

	for _, l := range links {
		from, okFrom := g.Nodes[l.FromNodeID]
		to, okTo := g.Nodes[l.ToNodeID]
		if !okFrom || !okTo {
			continue
		}
		idx := len(g.Links)
		g.Links = append(g.Links, l)
		from.Out = append(from.Out, idx)
		to.In = append(to.In, idx)
	}

	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		if len(node.In) == 0 {
			g.Roots = append(g.Roots, id)
		}
		if len(node.Out) == 0 {
			g.Leaves = append(g.Leaves, id)
		}
	}

	g.Loops = detectLoops(g)
	assignLevels(g)

	return g
}

// detectLoops walks the graph depth-first, recording the closing sub-path each
// time an edge targets a node already on the recursion stack. Rotations of the
// same cycle discovered from different entry points are reported as-is.
func detectLoops(g *OwnershipGraph) [][]string {
	var loops [][]string
	visited := make(map[string]bool, len(g.Nodes))
	onStack := make(map[string]bool, len(g.Nodes))
	var currentPath []string

	var walk func(id string)
	walk = func(id string) {
		visited[id] = true
		onStack[id] = true
		currentPath = append(currentPath, id)

		for _, idx := range g.Nodes[id].Out {
			target := g.Links[idx].ToNodeID
			if onStack[target] {
				start := 0
				for i, pathID := range currentPath {
					if pathID == target {
						start = i
						break
					}
				}
				loop := make([]string, 0, len(currentPath)-start+1)
				loop = append(loop, currentPath[start:]...)
				loop = append(loop, target)
				loops = append(loops, loop)
				continue
			}
			if !visited[target] {
				walk(target)
			}
		}

		currentPath = currentPath[:len(currentPath)-1]
		onStack[id] = false
	}

	for _, id := range g.NodeIDs() {
		if !visited[id] {
			walk(id)
		}
	}

	return loops
}

// assignLevels propagates levels breadth-first from every root, keeping the
// maximum discovered distance. Max-wins is deliberate: it drives the layered
// layout and the depth component of risk scoring, and must not be replaced
// with shortest-path semantics. Levels are capped at the node count so
// propagation stays finite inside loops.
func assignLevels(g *OwnershipGraph) {
	maxLevel := len(g.Nodes)

	queue := make([]string, 0, len(g.Roots))
	for _, id := range g.Roots {
		g.Nodes[id].Level = 0
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		node := g.Nodes[id]

		for _, idx := range node.Out {
			target := g.Nodes[g.Links[idx].ToNodeID]
			candidate := node.Level + 1
			if candidate > target.Level && candidate < maxLevel {
				target.Level = candidate
				queue = append(queue, g.Links[idx].ToNodeID)
			}
		}
	}

	g.MaxDepth = 0
	for _, node := range g.Nodes {
		if node.Level < 0 {
			// Unreachable from any root (e.g. every member of a detached loop).
			node.Level = 0
		}
		if node.Level > g.MaxDepth {
			g.MaxDepth = node.Level
		}
	}
}

// Graph issue types reported by ValidateGraph.
const (
	IssueLoop          = "loop"
	IssueOrphan        = "orphan"
	IssueOverOwnership = "over_ownership"
)

// GraphIssue is a structural problem found in a built graph. Issues are
// advisory; the engine never rejects a graph for its shape.
type GraphIssue struct {
	Type    string
	Message string
	NodeIDs []string
}

// ValidateGraph reports loops, orphaned non-household nodes, and nodes whose
// incoming ownership exceeds 100%.
func ValidateGraph(g *OwnershipGraph) []GraphIssue {
	var issues []GraphIssue

	for _, loop := range g.Loops {
		issues = append(issues, GraphIssue{
			Type:    IssueLoop,
			Message: fmt.Sprintf("circular ownership detected across %d nodes", len(loop)-1),
			NodeIDs: loop,
		})
	}

	reachable := householdReachability(g)
	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		if node.Node.Type == domain.NodeTypeHousehold {
			continue
		}
		if !reachable[id] {
			issues = append(issues, GraphIssue{
				Type:    IssueOrphan,
				Message: fmt.Sprintf("%s %q is not reachable from any household", node.Node.Type, node.Node.Name),
				NodeIDs: []string{id},
			})
		}
	}

	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		var sum float64
		for _, idx := range node.In {
			sum += g.Links[idx].OwnershipPct
		}
		if sum > 100+overOwnershipTolerance {
			issues = append(issues, GraphIssue{
				Type:    IssueOverOwnership,
				Message: fmt.Sprintf("incoming ownership of %q totals %.2f%%", node.Node.Name, sum),
				NodeIDs: []string{id},
			})
		}
	}

	return issues
}

// householdReachability marks every node reachable from a household root.
func householdReachability(g *OwnershipGraph) map[string]bool {
	reachable := make(map[string]bool, len(g.Nodes))
	var queue []string
	for _, id := range g.Roots {
		if g.Nodes[id].Node.Type == domain.NodeTypeHousehold {
			reachable[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, idx := range g.Nodes[id].Out {
			target := g.Links[idx].ToNodeID
			if !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}

	return reachable
}
