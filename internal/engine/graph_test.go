package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearstake/ownergraph/backend/internal/domain"
)

func testNode(id string, t domain.NodeType) domain.OwnershipNode {
	return domain.OwnershipNode{ID: id, ClientID: "client-1", Name: "Node " + id, Type: t}
}

func testLink(id, from, to string, pct float64) domain.OwnershipLink {
	return domain.OwnershipLink{ID: id, ClientID: "client-1", FromNodeID: from, ToNodeID: to, OwnershipPct: pct}
}

// chainFixture builds H -> T -> E -> A with full ownership at each hop.
func chainFixture() *OwnershipGraph {
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("t1", domain.NodeTypeTrust),
		testNode("e1", domain.NodeTypeEntity),
		testNode("a1", domain.NodeTypeAccount),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "t1", 100),
		testLink("l2", "t1", "e1", 100),
		testLink("l3", "e1", "a1", 100),
	}
	return BuildGraph(nodes, links)
}

func TestBuildGraphEmpty(t *testing.T) {
	g := BuildGraph(nil, nil)

	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Roots)
	assert.Empty(t, g.Leaves)
	assert.Empty(t, g.Loops)
	assert.Equal(t, 0, g.MaxDepth)
}

func TestBuildGraphNoLinks(t *testing.T) {
	nodes := []domain.OwnershipNode{
		testNode("b", domain.NodeTypeEntity),
		testNode("a", domain.NodeTypeHousehold),
	}
	g := BuildGraph(nodes, nil)

	// Every node is both a root and a leaf, in sorted order.
	assert.Equal(t, []string{"a", "b"}, g.Roots)
	assert.Equal(t, []string{"a", "b"}, g.Leaves)
	assert.Equal(t, 0, g.MaxDepth)
}

func TestBuildGraphDropsDanglingLinks(t *testing.T) {
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("e1", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "e1", 100),
		testLink("l2", "h1", "missing", 50),
		testLink("l3", "missing", "e1", 50),
	}
	g := BuildGraph(nodes, links)

	require.Len(t, g.Links, 1)
	assert.Equal(t, "l1", g.Links[0].ID)
}

func TestBuildGraphLevels(t *testing.T) {
	g := chainFixture()

	assert.Equal(t, []string{"h1"}, g.Roots)
	assert.Equal(t, []string{"a1"}, g.Leaves)
	assert.Equal(t, 0, g.Nodes["h1"].Level)
	assert.Equal(t, 1, g.Nodes["t1"].Level)
	assert.Equal(t, 2, g.Nodes["e1"].Level)
	assert.Equal(t, 3, g.Nodes["a1"].Level)
	assert.Equal(t, 3, g.MaxDepth)
}

func TestBuildGraphLevelsMaxWins(t *testing.T) {
	// Diamond with a long arm: e2 is reachable in 1 hop and in 2 hops, and
	// the longer distance must win.
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("e1", domain.NodeTypeEntity),
		testNode("e2", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "e2", 40),
		testLink("l2", "h1", "e1", 60),
		testLink("l3", "e1", "e2", 60),
	}
	g := BuildGraph(nodes, links)

	assert.Equal(t, 2, g.Nodes["e2"].Level)
	assert.Equal(t, 2, g.MaxDepth)
}

func TestDetectLoopsThreeCycle(t *testing.T) {
	nodes := []domain.OwnershipNode{
		testNode("a", domain.NodeTypeEntity),
		testNode("b", domain.NodeTypeEntity),
		testNode("c", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "a", "b", 50),
		testLink("l2", "b", "c", 50),
		testLink("l3", "c", "a", 50),
	}
	g := BuildGraph(nodes, links)

	require.Len(t, g.Loops, 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, g.Loops[0])
}

func TestBuildGraphTerminatesOnCycle(t *testing.T) {
	// A cycle reachable from a root must not wedge level assignment.
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("a", domain.NodeTypeEntity),
		testNode("b", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "a", 100),
		testLink("l2", "a", "b", 50),
		testLink("l3", "b", "a", 50),
	}
	g := BuildGraph(nodes, links)

	require.Len(t, g.Loops, 1)
	assert.Less(t, g.MaxDepth, len(g.Nodes))
}

func TestValidateGraphClean(t *testing.T) {
	assert.Empty(t, ValidateGraph(chainFixture()))
}

func TestValidateGraphLoop(t *testing.T) {
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("a", domain.NodeTypeEntity),
		testNode("b", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "a", 100),
		testLink("l2", "a", "b", 50),
		testLink("l3", "b", "a", 50),
	}
	issues := ValidateGraph(BuildGraph(nodes, links))

	require.Len(t, issues, 1)
	assert.Equal(t, IssueLoop, issues[0].Type)
}

func TestValidateGraphOrphan(t *testing.T) {
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("e1", domain.NodeTypeEntity),
		testNode("e2", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "e1", 100),
	}
	issues := ValidateGraph(BuildGraph(nodes, links))

	require.Len(t, issues, 1)
	assert.Equal(t, IssueOrphan, issues[0].Type)
	assert.Equal(t, []string{"e2"}, issues[0].NodeIDs)
}

func TestValidateGraphOverOwnership(t *testing.T) {
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("h2", domain.NodeTypeHousehold),
		testNode("e1", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "e1", 60),
		testLink("l2", "h2", "e1", 41),
	}
	issues := ValidateGraph(BuildGraph(nodes, links))

	require.Len(t, issues, 1)
	assert.Equal(t, IssueOverOwnership, issues[0].Type)
	assert.Equal(t, []string{"e1"}, issues[0].NodeIDs)
}

func TestValidateGraphExactly100NotFlagged(t *testing.T) {
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("h2", domain.NodeTypeHousehold),
		testNode("e1", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "e1", 60),
		testLink("l2", "h2", "e1", 40),
	}
	assert.Empty(t, ValidateGraph(BuildGraph(nodes, links)))
}
