package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearstake/ownergraph/backend/internal/domain"
)

func TestRiskLevelBoundaries(t *testing.T) {
	tests := []struct {
		value float64
		want  domain.RiskLevel
	}{
		{0, domain.RiskLow},
		{39.99, domain.RiskLow},
		{40.0, domain.RiskMedium},
		{59.99, domain.RiskMedium},
		{60.0, domain.RiskHigh},
		{79.99, domain.RiskHigh},
		{80.0, domain.RiskCritical},
		{100.0, domain.RiskCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, riskLevelFor(tt.value), "value %.2f", tt.value)
	}
}

func TestEntityConcentrationFlow(t *testing.T) {
	// 85% of ownership flows into e1; a critical concentration.
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("e1", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "e1", 85),
	}
	report := AnalyzeConcentrations(BuildGraph(nodes, links))

	var entity []domain.ConcentrationMetric
	for _, m := range report.Metrics {
		if m.Type == domain.MetricEntityConcentration {
			entity = append(entity, m)
		}
	}
	require.Len(t, entity, 1)
	assert.Equal(t, "e1", entity[0].TargetID)
	assert.InDelta(t, 85.0, entity[0].Value, 0.001)
	assert.Equal(t, domain.RiskCritical, entity[0].RiskLevel)
}

func TestEntityConcentrationSkipsHouseholdsAndLowRisk(t *testing.T) {
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("e1", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "e1", 30),
	}
	report := AnalyzeConcentrations(BuildGraph(nodes, links))

	for _, m := range report.Metrics {
		assert.NotEqual(t, domain.MetricEntityConcentration, m.Type)
	}
}

func TestJurisdictionConcentration(t *testing.T) {
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("e1", domain.NodeTypeEntity),
		testNode("e2", domain.NodeTypeEntity),
		testNode("e3", domain.NodeTypeEntity),
	}
	for i := range nodes {
		if i > 0 {
			nodes[i].Jurisdiction = "KY"
		}
	}
	g := BuildGraph(nodes, nil)
	report := AnalyzeConcentrations(g)

	var found bool
	for _, m := range report.Metrics {
		if m.Type == domain.MetricJurisdictionConcentration && m.TargetID == "KY" {
			found = true
			assert.InDelta(t, 75.0, m.Value, 0.001)
			assert.Equal(t, domain.RiskHigh, m.RiskLevel)
		}
	}
	assert.True(t, found, "expected a KY jurisdiction metric")
}

func TestJurisdictionConcentrationUnknownBucket(t *testing.T) {
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
	}
	report := AnalyzeConcentrations(BuildGraph(nodes, nil))

	require.NotEmpty(t, report.Metrics)
	var found bool
	for _, m := range report.Metrics {
		if m.Type == domain.MetricJurisdictionConcentration {
			found = true
			assert.Equal(t, "Unknown", m.TargetID)
			assert.Equal(t, domain.RiskCritical, m.RiskLevel)
		}
	}
	assert.True(t, found)
}

func TestSinglePointFailureAlwaysHigh(t *testing.T) {
	// t1 is the sole owner of both e1 and e2, covering only a third of the
	// structure. The level must still be high.
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("h2", domain.NodeTypeHousehold),
		testNode("t1", domain.NodeTypeTrust),
		testNode("e1", domain.NodeTypeEntity),
		testNode("e2", domain.NodeTypeEntity),
		testNode("e3", domain.NodeTypeEntity),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "t1", 60),
		testLink("l2", "h2", "t1", 40),
		testLink("l3", "t1", "e1", 100),
		testLink("l4", "t1", "e2", 100),
		testLink("l5", "h1", "e3", 50),
		testLink("l6", "h2", "e3", 50),
	}
	report := AnalyzeConcentrations(BuildGraph(nodes, links))

	var spof []domain.ConcentrationMetric
	for _, m := range report.Metrics {
		if m.Type == domain.MetricSinglePointFailure {
			spof = append(spof, m)
		}
	}
	require.NotEmpty(t, spof)
	for _, m := range spof {
		assert.Equal(t, domain.RiskHigh, m.RiskLevel)
		if m.TargetID == "t1" {
			assert.InDelta(t, float64(2)/6*100, m.Value, 0.001)
		}
	}
}

func TestRiskScoreComposition(t *testing.T) {
	// One loop plus depth 7 on an otherwise quiet structure.
	nodes := []domain.OwnershipNode{
		testNode("h1", domain.NodeTypeHousehold),
		testNode("n1", domain.NodeTypeEntity),
		testNode("n2", domain.NodeTypeEntity),
		testNode("n3", domain.NodeTypeEntity),
		testNode("n4", domain.NodeTypeEntity),
		testNode("n5", domain.NodeTypeEntity),
		testNode("n6", domain.NodeTypeEntity),
		testNode("n7", domain.NodeTypeAccount),
	}
	links := []domain.OwnershipLink{
		testLink("l1", "h1", "n1", 30),
		testLink("l2", "n1", "n2", 30),
		testLink("l3", "n2", "n3", 30),
		testLink("l4", "n3", "n4", 30),
		testLink("l5", "n4", "n5", 30),
		testLink("l6", "n5", "n6", 30),
		testLink("l7", "n6", "n7", 30),
		testLink("l8", "n2", "n1", 30),
	}
	g := BuildGraph(nodes, links)
	require.Len(t, g.Loops, 1)
	require.Equal(t, 7, g.MaxDepth)

	report := AnalyzeConcentrations(g)
	summary := report.Summary
	assert.Equal(t, 8, summary.NodeCount)
	assert.Equal(t, 8, summary.LinkCount)
	assert.Equal(t, 1, summary.LoopCount)
	assert.Equal(t, 7, summary.MaxDepth)

	// Every node is a sole owner of its successor here, so SPOF metrics
	// contribute alongside the loop and depth penalties.
	var metricPoints int
	for _, m := range report.Metrics {
		switch m.RiskLevel {
		case domain.RiskMedium:
			metricPoints += 10
		case domain.RiskHigh:
			metricPoints += 25
		case domain.RiskCritical:
			metricPoints += 40
		}
	}
	want := metricPoints + 20 + 5*2
	if want > 100 {
		want = 100
	}
	assert.Equal(t, want, summary.RiskScore)
	assert.LessOrEqual(t, summary.RiskScore, 100)
	assert.NotEmpty(t, report.Warnings)
}

func TestRiskScoreEmptyGraph(t *testing.T) {
	report := AnalyzeConcentrations(BuildGraph(nil, nil))
	assert.Equal(t, 0, report.Summary.RiskScore)
	assert.Empty(t, report.Metrics)
	assert.Empty(t, report.Warnings)
}
