package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearstake/ownergraph/backend/internal/domain"
)

func viewFixture() *OwnershipGraph {
	value := 2500000.0
	account := testNode("a1", domain.NodeTypeAccount)
	account.Name = "Account 1234567890"
	account.Value = &value
	account.Notes = "internal pricing note"

	trust := testNode("t1", domain.NodeTypeTrust)
	trust.Jurisdiction = "KY"

	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		trust,
		testNode("e1", domain.NodeTypeEntity),
		account,
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "t1", 100),
		testLink("l2", "t1", "e1", 62.5),
		testLink("l3", "e1", "a1", 33),
	}
	return BuildGraph(nodes, links)
}

func TestNewClientSafeViewRequiredFields(t *testing.T) {
	g := viewFixture()

	_, err := NewClientSafeView(g, "", "u1", "client-1", domain.MaskRules{})
	assert.ErrorIs(t, err, ErrMissingScopeNode)

	_, err = NewClientSafeView(g, "h1", "", "client-1", domain.MaskRules{})
	assert.ErrorIs(t, err, ErrMissingPublisher)

	_, err = NewClientSafeView(g, "h1", "u1", "", domain.MaskRules{})
	assert.ErrorIs(t, err, ErrMissingClientID)
}

func TestNewClientSafeViewForcesHideInternalNotes(t *testing.T) {
	view, err := NewClientSafeView(viewFixture(), "h1", "u1", "client-1", domain.MaskRules{HideInternalNotes: false})
	require.NoError(t, err)
	assert.True(t, view.MaskRules.HideInternalNotes)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "u1", view.PublishedBy)
	assert.False(t, view.PublishedAt.IsZero())
}

func TestNewClientSafeViewMasksAccountNumbers(t *testing.T) {
	view, err := NewClientSafeView(viewFixture(), "h1", "u1", "client-1", domain.MaskRules{MaskAccountNumbers: true})
	require.NoError(t, err)

	var account *domain.ViewNode
	for i := range view.Nodes {
		if view.Nodes[i].ID == "a1" {
			account = &view.Nodes[i]
		}
	}
	require.NotNil(t, account)
	assert.Equal(t, "Account XXXXXX7890", account.Name)
}

func TestNewClientSafeViewLeavesShortDigitRuns(t *testing.T) {
	account := testNode("a1", domain.NodeTypeAccount)
	account.Name = "Account 2024"
	g := BuildGraph([]domain.OwnershipNode{testNode("h1", domain.NodeTypeHousehold), account},
		[]domain.OwnershipLink{testLink("l1", "h1", "a1", 100)})

	view, err := NewClientSafeView(g, "h1", "u1", "client-1", domain.MaskRules{MaskAccountNumbers: true})
	require.NoError(t, err)

	for _, n := range view.Nodes {
		if n.ID == "a1" {
			assert.Equal(t, "Account 2024", n.Name)
		}
	}
}

func TestNewClientSafeViewMasksAssetValues(t *testing.T) {
	view, err := NewClientSafeView(viewFixture(), "h1", "u1", "client-1", domain.MaskRules{MaskAssetValues: true})
	require.NoError(t, err)
	for _, n := range view.Nodes {
		assert.Nil(t, n.Value, "node %s", n.ID)
	}

	view, err = NewClientSafeView(viewFixture(), "h1", "u1", "client-1", domain.MaskRules{})
	require.NoError(t, err)
	var found bool
	for _, n := range view.Nodes {
		if n.ID == "a1" {
			found = true
			require.NotNil(t, n.Value)
			assert.InDelta(t, 2500000.0, *n.Value, 0.001)
		}
	}
	assert.True(t, found)
}

func TestNewClientSafeViewExcludesNodesAndDanglingLinks(t *testing.T) {
	view, err := NewClientSafeView(viewFixture(), "h1", "u1", "client-1", domain.MaskRules{
		ExcludeNodeTypes: []domain.NodeType{domain.NodeTypeTrust},
	})
	require.NoError(t, err)

	for _, n := range view.Nodes {
		assert.NotEqual(t, domain.NodeTypeTrust, n.Type)
	}
	// Links touching the excluded trust disappear with it.
	for _, l := range view.Links {
		assert.NotEqual(t, "l1", l.ID)
		assert.NotEqual(t, "l2", l.ID)
	}
	require.Len(t, view.Links, 1)
	assert.Equal(t, "l3", view.Links[0].ID)
}

func TestNewClientSafeViewExcludesJurisdictions(t *testing.T) {
	view, err := NewClientSafeView(viewFixture(), "h1", "u1", "client-1", domain.MaskRules{
		ExcludeJurisdictions: []string{"KY"},
	})
	require.NoError(t, err)

	for _, n := range view.Nodes {
		assert.NotEqual(t, "t1", n.ID)
	}
}

func TestNewClientSafeViewSimplifiesPercentages(t *testing.T) {
	view, err := NewClientSafeView(viewFixture(), "h1", "u1", "client-1", domain.MaskRules{
		SimplifyPercentages: true,
	})
	require.NoError(t, err)

	byID := make(map[string]domain.ViewLink)
	for _, l := range view.Links {
		byID[l.ID] = l
	}
	assert.InDelta(t, 100.0, byID["l1"].OwnershipPct, 0.001)
	assert.InDelta(t, 65.0, byID["l2"].OwnershipPct, 0.001)
	assert.InDelta(t, 35.0, byID["l3"].OwnershipPct, 0.001)
}

func TestValidateClientSafeViewEmpty(t *testing.T) {
	issues := ValidateClientSafeView(domain.ClientSafeView{})
	require.Len(t, issues, 1)
	assert.Equal(t, domain.ViewIssueError, issues[0].Severity)
}

func TestValidateClientSafeViewUnlinkedNode(t *testing.T) {
	view := domain.ClientSafeView{
		Nodes: []domain.ViewNode{
			{ID: "a", Name: "A"},
			{ID: "b", Name: "B"},
			{ID: "c", Name: "C"},
		},
		Links: []domain.ViewLink{
			{ID: "l1", FromNodeID: "a", ToNodeID: "b"},
		},
	}
	issues := ValidateClientSafeView(view)

	require.Len(t, issues, 1)
	assert.Equal(t, domain.ViewIssueWarning, issues[0].Severity)
	assert.Equal(t, "c", issues[0].NodeID)
}

func TestCompareViews(t *testing.T) {
	oldView := domain.ClientSafeView{
		Nodes: []domain.ViewNode{{ID: "a"}, {ID: "b"}},
		Links: []domain.ViewLink{{ID: "l1"}, {ID: "l2"}},
	}
	newView := domain.ClientSafeView{
		Nodes: []domain.ViewNode{{ID: "b"}, {ID: "c"}},
		Links: []domain.ViewLink{{ID: "l2"}, {ID: "l3"}},
	}

	diff := CompareViews(oldView, newView)
	assert.Equal(t, []string{"c"}, diff.NodesAdded)
	assert.Equal(t, []string{"a"}, diff.NodesRemoved)
	assert.Equal(t, []string{"l3"}, diff.LinksAdded)
	assert.Equal(t, []string{"l1"}, diff.LinksRemoved)

	// The reverse comparison mirrors the diff.
	reverse := CompareViews(newView, oldView)
	assert.Equal(t, diff.NodesAdded, reverse.NodesRemoved)
	assert.Equal(t, diff.NodesRemoved, reverse.NodesAdded)
	assert.Equal(t, diff.LinksAdded, reverse.LinksRemoved)
	assert.Equal(t, diff.LinksRemoved, reverse.LinksAdded)
}
