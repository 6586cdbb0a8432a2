package engine

// PathResult is one simple path between two nodes together with the
// percentage of ownership it carries end to end.
type PathResult struct {
	NodeIDs []string
	LinkIDs []string
	Pct     float64
}

// FindPaths enumerates every simple path from fromID to toID of at most
// maxDepth hops. A node id never repeats within a path, which guarantees
// termination even when the graph contains loops. The percentage starts at
// 100 at the source and is multiplied by linkPct/100 along each hop. A
// maxDepth of zero or less falls back to DefaultMaxPathDepth.
func FindPaths(g *OwnershipGraph, fromID, toID string, maxDepth int) []PathResult {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxPathDepth
	}
	if _, ok := g.Nodes[fromID]; !ok {
		return nil
	}
	if _, ok := g.Nodes[toID]; !ok {
		return nil
	}

	var results []PathResult
	onPath := map[string]bool{fromID: true}
	nodeIDs := []string{fromID}
	var linkIDs []string

	var walk func(id string, pct float64, depth int)
	walk = func(id string, pct float64, depth int) {
		if id == toID {
			results = append(results, PathResult{
				NodeIDs: append([]string(nil), nodeIDs...),
				LinkIDs: append([]string(nil), linkIDs...),
				Pct:     pct,
			})
			return
		}
		if depth >= maxDepth {
			return
		}

		for _, idx := range g.Nodes[id].Out {
			link := g.Links[idx]
			if onPath[link.ToNodeID] {
				continue
			}
			onPath[link.ToNodeID] = true
			nodeIDs = append(nodeIDs, link.ToNodeID)
			linkIDs = append(linkIDs, link.ID)

			walk(link.ToNodeID, pct*link.OwnershipPct/100, depth+1)

			linkIDs = linkIDs[:len(linkIDs)-1]
			nodeIDs = nodeIDs[:len(nodeIDs)-1]
			onPath[link.ToNodeID] = false
		}
	}

	walk(fromID, 100, 0)
	return results
}

// SubgraphResult holds the node and link id sets touched by a subgraph
// traversal.
type SubgraphResult struct {
	NodeIDs map[string]bool
	LinkIDs map[string]bool
}

// Subgraph collects the ancestors and/or descendants of a node via two
// independent breadth-first traversals. The starting node is always included
// when it exists.
func Subgraph(g *OwnershipGraph, nodeID string, ancestors, descendants bool) SubgraphResult {
	result := SubgraphResult{
		NodeIDs: make(map[string]bool),
		LinkIDs: make(map[string]bool),
	}
	if _, ok := g.Nodes[nodeID]; !ok {
		return result
	}
	result.NodeIDs[nodeID] = true

	if ancestors {
		traverse(g, nodeID, result, func(n *GraphNode) []int { return n.In }, func(idx int) string {
			return g.Links[idx].FromNodeID
		})
	}
	if descendants {
		traverse(g, nodeID, result, func(n *GraphNode) []int { return n.Out }, func(idx int) string {
			return g.Links[idx].ToNodeID
		})
	}

	return result
}

func traverse(g *OwnershipGraph, start string, result SubgraphResult, edges func(*GraphNode) []int, endpoint func(int) string) {
	seen := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, idx := range edges(g.Nodes[id]) {
			result.LinkIDs[g.Links[idx].ID] = true
			next := endpoint(idx)
			result.NodeIDs[next] = true
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
}
