package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearstake/ownergraph/backend/internal/domain"
)

func TestComputeUboRequiresHousehold(t *testing.T) {
	_, err := ComputeUbo(chainFixture(), nil, UboOptions{ClientID: "client-1"})
	assert.ErrorIs(t, err, ErrMissingHouseholdNode)
}

func TestComputeUboHouseholdFallback(t *testing.T) {
	// H owns E at 100%, E owns F at 40%. A person without a node of their
	// own starts at the household and reaches F at 40%.
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("e1", domain.NodeTypeEntity),
		testNode("f1", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "e1", 100),
		testLink("l2", "e1", "f1", 40),
	}
	g := BuildGraph(nodes, links)

	persons := []domain.Person{{ID: "p1", ExternalID: "x1", Name: "Ada"}}
	records, err := ComputeUbo(g, persons, UboOptions{ClientID: "client-1", HouseholdNodeID: "h1"})
	require.NoError(t, err)

	require.Len(t, records, 2)
	byTarget := make(map[string]domain.UboRecord)
	for _, r := range records {
		byTarget[r.TargetNodeID] = r
	}
	assert.InDelta(t, 100.0, byTarget["e1"].ComputedPct, 0.001)

	f1 := byTarget["f1"]
	assert.Equal(t, "p1", f1.PersonRef)
	assert.Equal(t, "h1", f1.RootHouseholdNodeID)
	assert.InDelta(t, 40.0, f1.ComputedPct, 0.001)
	require.Len(t, f1.Paths, 1)
	assert.Equal(t, []string{"h1", "e1", "f1"}, f1.Paths[0].NodeIDs)
	assert.Equal(t, []string{"l1", "l2"}, f1.SourceLinkIDs)
}

func TestComputeUboResolvesPersonNode(t *testing.T) {
	ref := &domain.ExternalRef{Type: ExternalRefTypePerson, ID: "x1"}
	personNode := testNode("pn1", domain.NodeTypeEntity)
	personNode.ExternalRef = ref

	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		personNode,
		testNode("e1", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "pn1", "e1", 75),
		testLink("l2", "h1", "e1", 25),
	}
	g := BuildGraph(nodes, links)

	persons := []domain.Person{{ID: "p1", ExternalID: "x1", Name: "Ada"}}
	records, err := ComputeUbo(g, persons, UboOptions{ClientID: "client-1", HouseholdNodeID: "h1"})
	require.NoError(t, err)

	// The person starts at their own node, not the household, so only the
	// 75% stake is attributed.
	var e1 *domain.UboRecord
	for i := range records {
		if records[i].TargetNodeID == "e1" {
			e1 = &records[i]
		}
	}
	require.NotNil(t, e1)
	assert.InDelta(t, 75.0, e1.ComputedPct, 0.001)
}

func TestComputeUboSumsAcrossPaths(t *testing.T) {
	// Two routes to e3: 80%*50% = 40% and 20%*50% = 10%, summing to 50%.
	persons := []domain.Person{{ID: "p1", ExternalID: "x1", Name: "Ada"}}
	records, err := ComputeUbo(diamondFixture(), persons, UboOptions{ClientID: "client-1", HouseholdNodeID: "h1"})
	require.NoError(t, err)

	var e3 *domain.UboRecord
	for i := range records {
		if records[i].TargetNodeID == "e3" {
			e3 = &records[i]
		}
	}
	require.NotNil(t, e3)
	assert.InDelta(t, 50.0, e3.ComputedPct, 0.001)
	assert.Len(t, e3.Paths, 2)
	assert.Equal(t, []string{"l1", "l2", "l3", "l4"}, e3.SourceLinkIDs)
}

func TestComputeUboThreshold(t *testing.T) {
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("e1", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "e1", 24.9),
	}
	g := BuildGraph(nodes, links)
	persons := []domain.Person{{ID: "p1", ExternalID: "x1", Name: "Ada"}}

	// Default 25% threshold drops the record.
	records, err := ComputeUbo(g, persons, UboOptions{ClientID: "client-1", HouseholdNodeID: "h1"})
	require.NoError(t, err)
	assert.Empty(t, records)

	// Lowering the threshold keeps it.
	records, err = ComputeUbo(g, persons, UboOptions{ClientID: "client-1", HouseholdNodeID: "h1", MinPctThreshold: 10})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestComputeDirectOwnership(t *testing.T) {
	owners := ComputeDirectOwnership(diamondFixture(), "e3")

	require.Len(t, owners, 2)
	assert.Equal(t, "e1", owners[0].NodeID)
	assert.Equal(t, "l3", owners[0].LinkID)
	assert.InDelta(t, 50.0, owners[0].OwnershipPct, 0.001)
	assert.Equal(t, "e2", owners[1].NodeID)

	assert.Empty(t, ComputeDirectOwnership(diamondFixture(), "missing"))
}

func TestValidateUboResultsOver100(t *testing.T) {
	records := []domain.UboRecord{
		{PersonRef: "p1", TargetNodeID: "e1", ComputedPct: 60},
		{PersonRef: "p2", TargetNodeID: "e1", ComputedPct: 41},
		{PersonRef: "p1", TargetNodeID: "e2", ComputedPct: 100},
	}
	issues := ValidateUboResults(records)

	require.Len(t, issues, 1)
	assert.Equal(t, domain.UboIssueOver100, issues[0].Type)
	assert.Equal(t, "e1", issues[0].TargetNodeID)
	assert.InDelta(t, 101.0, issues[0].TotalPct, 0.001)
}

func TestValidateUboResultsExactly100(t *testing.T) {
	records := []domain.UboRecord{
		{PersonRef: "p1", TargetNodeID: "e1", ComputedPct: 60},
		{PersonRef: "p2", TargetNodeID: "e1", ComputedPct: 40},
	}
	assert.Empty(t, ValidateUboResults(records))
}
