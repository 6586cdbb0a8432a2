package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/clearstake/ownergraph/backend/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		households  = flag.Int("households", cfg.NumHouseholds, "number of household structures to generate")
		maxEntities = flag.Int("max-entities", cfg.MaxEntitiesPerLevel, "maximum entities per structure level")
		maxDepth    = flag.Int("max-depth", cfg.MaxDepth, "maximum structure depth below the household")
		persons     = flag.Int("persons", cfg.PersonsPerHousehold, "persons registered per household")
		cycleChance = flag.Float64("cycle-chance", cfg.CycleChance, "probability of injecting an ownership cycle")
		overChance  = flag.Float64("over-chance", cfg.OverOwnershipChance, "probability of inflating a split past 100 percent")
		seed        = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir   = flag.String("output-dir", "data", "directory to write nodes.json, links.json and persons.json")
		writeStdout = flag.Bool("stdout", false, "write combined dataset to stdout instead of files")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumHouseholds:       *households,
		MaxEntitiesPerLevel: *maxEntities,
		MaxDepth:            *maxDepth,
		PersonsPerHousehold: *persons,
		CycleChance:         clampProbability(*cycleChance),
		OverOwnershipChance: clampProbability(*overChance),
		Seed:                *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d nodes, %d links and %d persons into %s\n",
		len(dataset.Nodes), len(dataset.Links), len(dataset.Persons), *outputDir)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
