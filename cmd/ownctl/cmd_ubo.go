package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clearstake/ownergraph/backend/internal/engine"
)

var (
	uboClient    string
	uboHousehold string
	uboMinPct    float64
	uboMaxDepth  int
)

var uboCmd = &cobra.Command{
	Use:   "ubo",
	Short: "Compute ultimate beneficial ownership from a household root",
	RunE: func(cmd *cobra.Command, args []string) error {
		if uboHousehold == "" {
			return fmt.Errorf("--household is required")
		}

		g, err := loadGraph(uboClient)
		if err != nil {
			return err
		}
		persons, err := loadPersons(uboClient)
		if err != nil {
			return err
		}

		records, err := engine.ComputeUbo(g, persons, engine.UboOptions{
			ClientID:        uboClient,
			HouseholdNodeID: uboHousehold,
			MinPctThreshold: uboMinPct,
			MaxPathDepth:    uboMaxDepth,
		})
		if err != nil {
			return err
		}
		issues := engine.ValidateUboResults(records)

		if outputJSON {
			return emitJSON(map[string]any{
				"records": records,
				"issues":  issues,
			})
		}

		if len(records) == 0 {
			fmt.Println("No beneficial owners above the threshold.")
			return nil
		}

		for _, record := range records {
			fmt.Printf("%s -> %s: %.2f%% (%s)\n",
				record.PersonName, record.TargetNodeID, record.ComputedPct, record.PersonRef)
			for _, path := range record.Paths {
				fmt.Printf("    %s (%.2f%%)\n", strings.Join(path.NodeIDs, " -> "), path.Pct)
			}
		}
		for _, issue := range issues {
			fmt.Printf("\nIssue [%s] %s\n", issue.Type, issue.Message)
		}

		return nil
	},
}

func init() {
	uboCmd.Flags().StringVar(&uboClient, "client", "", "restrict computation to a single client ID")
	uboCmd.Flags().StringVar(&uboHousehold, "household", "", "household node ID to resolve owners from")
	uboCmd.Flags().Float64Var(&uboMinPct, "min-pct", 0, "minimum ownership percentage to report (default 25)")
	uboCmd.Flags().IntVar(&uboMaxDepth, "max-depth", 0, "maximum traversal depth (default 10)")
	uboCmd.Flags().StringVar(&personsPath, "persons", "persons.json", "path to the persons JSON file")
}
