package engine

import (
	"fmt"
	"sort"

	"github.com/clearstake/ownergraph/backend/internal/domain"
)

// Risk score contributions per metric level. Loops and excess depth add their
// own points on top; the total is capped at 100.
const (
	riskPointsMedium   = 10
	riskPointsHigh     = 25
	riskPointsCritical = 40
	riskPointsPerLoop  = 20
	riskPointsPerDepth = 5
	depthRiskThreshold = 5
)

// AnalyzeConcentrations computes entity and jurisdiction concentration plus
// single-point-of-failure fragility for a built graph, and grades the
// structure with an overall 0-100 risk score.
func AnalyzeConcentrations(g *OwnershipGraph) domain.ConcentrationReport {
	var metrics []domain.ConcentrationMetric

	metrics = append(metrics, entityConcentrations(g)...)
	metrics = append(metrics, jurisdictionConcentrations(g)...)
	metrics = append(metrics, singlePointFailures(g)...)

	report := domain.ConcentrationReport{
		Metrics: metrics,
		Summary: summarize(g, metrics),
	}
	report.Warnings = buildWarnings(g, report.Summary)
	return report
}

// riskLevelFor maps a 0-100 concentration value onto a risk band.
func riskLevelFor(value float64) domain.RiskLevel {
	switch {
	case value >= 80:
		return domain.RiskCritical
	case value >= 60:
		return domain.RiskHigh
	case value >= 40:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// entityConcentrations measures ownership flow through every non-household
// node as max(incoming pct sum, outgoing pct sum). Low-risk results are not
// reported.
func entityConcentrations(g *OwnershipGraph) []domain.ConcentrationMetric {
	var metrics []domain.ConcentrationMetric

	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		if node.Node.Type == domain.NodeTypeHousehold {
			continue
		}

		var in, out float64
		for _, idx := range node.In {
			in += g.Links[idx].OwnershipPct
		}
		for _, idx := range node.Out {
			out += g.Links[idx].OwnershipPct
		}
		flow := in
		if out > flow {
			flow = out
		}

		level := riskLevelFor(flow)
		if level == domain.RiskLow {
			continue
		}
		metrics = append(metrics, domain.ConcentrationMetric{
			Type:        domain.MetricEntityConcentration,
			TargetID:    id,
			Value:       flow,
			RiskLevel:   level,
			Description: fmt.Sprintf("%.1f%% of ownership flows through %s %q", flow, node.Node.Type, node.Node.Name),
		})
	}

	return metrics
}

// jurisdictionConcentrations measures each jurisdiction's share of the node
// count. Nodes without a jurisdiction fall into the "Unknown" bucket.
func jurisdictionConcentrations(g *OwnershipGraph) []domain.ConcentrationMetric {
	if len(g.Nodes) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, node := range g.Nodes {
		jurisdiction := node.Node.Jurisdiction
		if jurisdiction == "" {
			jurisdiction = "Unknown"
		}
		counts[jurisdiction]++
	}

	jurisdictions := make([]string, 0, len(counts))
	for j := range counts {
		jurisdictions = append(jurisdictions, j)
	}
	sort.Strings(jurisdictions)

	var metrics []domain.ConcentrationMetric
	total := float64(len(g.Nodes))
	for _, jurisdiction := range jurisdictions {
		share := float64(counts[jurisdiction]) / total * 100
		level := riskLevelFor(share)
		if level == domain.RiskLow {
			continue
		}
		metrics = append(metrics, domain.ConcentrationMetric{
			Type:        domain.MetricJurisdictionConcentration,
			TargetID:    jurisdiction,
			Value:       share,
			RiskLevel:   level,
			Description: fmt.Sprintf("%.1f%% of the structure sits in %s", share, jurisdiction),
		})
	}

	return metrics
}

// singlePointFailures flags nodes that are the sole owner of at least one
// downstream node: removing them would sever that target from the structure.
// Flagged nodes are always graded high.
func singlePointFailures(g *OwnershipGraph) []domain.ConcentrationMetric {
	var metrics []domain.ConcentrationMetric
	total := float64(len(g.Nodes))

	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		var severed int
		for _, idx := range node.Out {
			target := g.Nodes[g.Links[idx].ToNodeID]
			if len(target.In) == 1 {
				severed++
			}
		}
		if severed == 0 {
			continue
		}

		value := float64(severed) / total * 100
		metrics = append(metrics, domain.ConcentrationMetric{
			Type:      domain.MetricSinglePointFailure,
			TargetID:  id,
			Value:     value,
			RiskLevel: domain.RiskHigh,
			Description: fmt.Sprintf("%q is the only owner of %d node(s); removing it would disconnect them",
				node.Node.Name, severed),
		})
	}

	return metrics
}

func summarize(g *OwnershipGraph, metrics []domain.ConcentrationMetric) domain.ConcentrationSummary {
	score := 0
	for _, m := range metrics {
		switch m.RiskLevel {
		case domain.RiskMedium:
			score += riskPointsMedium
		case domain.RiskHigh:
			score += riskPointsHigh
		case domain.RiskCritical:
			score += riskPointsCritical
		}
	}
	score += riskPointsPerLoop * len(g.Loops)
	if g.MaxDepth > depthRiskThreshold {
		score += riskPointsPerDepth * (g.MaxDepth - depthRiskThreshold)
	}
	if score > 100 {
		score = 100
	}

	var levelSum int
	for _, node := range g.Nodes {
		levelSum += node.Level
	}
	avg := 0.0
	if len(g.Nodes) > 0 {
		avg = float64(levelSum) / float64(len(g.Nodes))
	}

	return domain.ConcentrationSummary{
		NodeCount: len(g.Nodes),
		LinkCount: len(g.Links),
		LoopCount: len(g.Loops),
		MaxDepth:  g.MaxDepth,
		AvgDepth:  avg,
		RiskScore: score,
	}
}

func buildWarnings(g *OwnershipGraph, summary domain.ConcentrationSummary) []string {
	var warnings []string
	if summary.LoopCount > 0 {
		warnings = append(warnings, fmt.Sprintf("structure contains %d circular ownership chain(s)", summary.LoopCount))
	}
	if summary.MaxDepth > depthRiskThreshold {
		warnings = append(warnings, fmt.Sprintf("ownership chains reach %d levels; structures deeper than %d are hard to audit",
			summary.MaxDepth, depthRiskThreshold))
	}
	if summary.RiskScore >= 75 {
		warnings = append(warnings, "overall structural risk is elevated; review before onboarding decisions")
	}
	return warnings
}
