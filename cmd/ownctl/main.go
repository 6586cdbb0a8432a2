package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	nodesPath   string
	linksPath   string
	personsPath string
	outputJSON  bool

	rootCmd = &cobra.Command{
		Use:   "ownctl",
		Short: "Offline analysis of ownership structure files",
		Long: `ownctl runs the ownership analysis engine directly against JSON
files, without a running server or graph database. The node, link and
person files use the same shapes the ingest command consumes.`,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&nodesPath, "nodes", "nodes.json", "path to the nodes JSON file")
	rootCmd.PersistentFlags().StringVar(&linksPath, "links", "links.json", "path to the links JSON file")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "emit machine-readable JSON instead of text")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(uboCmd)
	rootCmd.AddCommand(maskCmd)
}
