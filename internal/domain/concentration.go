package domain

// RiskLevel grades a concentration finding.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// MetricType identifies the kind of concentration measurement.
type MetricType string

const (
	MetricEntityConcentration       MetricType = "entity_concentration"
	MetricJurisdictionConcentration MetricType = "jurisdiction_concentration"
	MetricSinglePointFailure        MetricType = "single_point_failure"
)

// ConcentrationMetric is a single concentration or fragility finding.
type ConcentrationMetric struct {
	Type        MetricType
	TargetID    string
	Value       float64
	RiskLevel   RiskLevel
	Description string
}

// ConcentrationSummary aggregates structure-wide statistics and the overall
// risk score (0-100).
type ConcentrationSummary struct {
	NodeCount int
	LinkCount int
	LoopCount int
	MaxDepth  int
	AvgDepth  float64
	RiskScore int
}

// ConcentrationReport is the full output of a concentration analysis.
type ConcentrationReport struct {
	Metrics  []ConcentrationMetric
	Summary  ConcentrationSummary
	Warnings []string
}
