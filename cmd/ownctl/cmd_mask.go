package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clearstake/ownergraph/backend/internal/domain"
	"github.com/clearstake/ownergraph/backend/internal/engine"
)

var (
	maskClient        string
	maskScope         string
	maskAccounts      bool
	maskValues        bool
	maskSimplify      bool
	maskExcludeTypes  []string
	maskExcludeJurisd []string
)

var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "Produce a client-safe view of a structure",
	RunE: func(cmd *cobra.Command, args []string) error {
		if maskScope == "" {
			return fmt.Errorf("--scope is required")
		}
		if maskClient == "" {
			return fmt.Errorf("--client is required")
		}

		g, err := loadGraph(maskClient)
		if err != nil {
			return err
		}

		rules := domain.MaskRules{
			MaskAccountNumbers:   maskAccounts,
			MaskAssetValues:      maskValues,
			ExcludeJurisdictions: maskExcludeJurisd,
			SimplifyPercentages:  maskSimplify,
		}
		for _, t := range maskExcludeTypes {
			rules.ExcludeNodeTypes = append(rules.ExcludeNodeTypes, domain.NodeType(strings.ToLower(t)))
		}

		view, err := engine.NewClientSafeView(g, maskScope, "ownctl", maskClient, rules)
		if err != nil {
			return err
		}
		issues := engine.ValidateClientSafeView(view)

		if outputJSON {
			return emitJSON(map[string]any{
				"view":   view,
				"issues": issues,
			})
		}

		fmt.Printf("View %s: %d nodes, %d links\n", view.ID, len(view.Nodes), len(view.Links))
		for _, node := range view.Nodes {
			line := fmt.Sprintf("  %s (%s)", node.Name, node.TypeLabel)
			if node.Value != nil {
				line += fmt.Sprintf(" value %.0f", *node.Value)
			}
			fmt.Println(line)
		}
		for _, link := range view.Links {
			fmt.Printf("  %s -> %s: %.2f%%\n", link.FromNodeID, link.ToNodeID, link.OwnershipPct)
		}
		for _, issue := range issues {
			fmt.Printf("\n%s: %s\n", issue.Severity, issue.Message)
		}

		return nil
	},
}

func init() {
	maskCmd.Flags().StringVar(&maskClient, "client", "", "restrict the view to a single client ID")
	maskCmd.Flags().StringVar(&maskScope, "scope", "", "node ID to scope the view to")
	maskCmd.Flags().BoolVar(&maskAccounts, "mask-accounts", true, "mask digits in account node names")
	maskCmd.Flags().BoolVar(&maskValues, "mask-values", false, "strip asset and account values")
	maskCmd.Flags().BoolVar(&maskSimplify, "simplify", false, "round percentages to the nearest 5")
	maskCmd.Flags().StringSliceVar(&maskExcludeTypes, "exclude-types", nil, "node types to drop from the view")
	maskCmd.Flags().StringSliceVar(&maskExcludeJurisd, "exclude-jurisdictions", nil, "jurisdictions to drop from the view")
}
