package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clearstake/ownergraph/backend/internal/engine"
)

var analyzeClient string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Validate a structure and report concentration risk",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(analyzeClient)
		if err != nil {
			return err
		}

		issues := engine.ValidateGraph(g)
		report := engine.AnalyzeConcentrations(g)

		if outputJSON {
			return emitJSON(map[string]any{
				"issues":  issues,
				"metrics": report.Metrics,
				"summary": report.Summary,
				"warnings": func() []string {
					if report.Warnings == nil {
						return []string{}
					}
					return report.Warnings
				}(),
			})
		}

		fmt.Printf("Structure: %d nodes, %d links, max depth %d\n",
			report.Summary.NodeCount, report.Summary.LinkCount, report.Summary.MaxDepth)
		fmt.Printf("Risk score: %d/100\n\n", report.Summary.RiskScore)

		if len(issues) == 0 {
			fmt.Println("Validation: clean")
		} else {
			fmt.Printf("Validation: %d issue(s)\n", len(issues))
			for _, issue := range issues {
				fmt.Printf("  [%s] %s (%s)\n", issue.Type, issue.Message, strings.Join(issue.NodeIDs, " -> "))
			}
		}

		if len(report.Metrics) > 0 {
			fmt.Printf("\nConcentration metrics:\n")
			for _, m := range report.Metrics {
				fmt.Printf("  %-28s %-10s %6.2f%%  %s\n", m.Type, m.RiskLevel, m.Value, m.Description)
			}
		}
		for _, warning := range report.Warnings {
			fmt.Printf("\nWarning: %s\n", warning)
		}

		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeClient, "client", "", "restrict analysis to a single client ID")
}
