package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/clearstake/ownergraph/backend/internal/config"
	"github.com/clearstake/ownergraph/backend/internal/graph"
	"github.com/clearstake/ownergraph/backend/internal/logging"
	"github.com/clearstake/ownergraph/backend/internal/repository"
	"github.com/clearstake/ownergraph/backend/internal/service"
)

var (
	errMissingDataset = errors.New("dataset not found")
)

func main() {
	var (
		datasetDir  = flag.String("dataset-dir", "./seed-data", "Directory containing nodes.json, links.json and persons.json")
		nodesPath   = flag.String("nodes", "", "Path to nodes.json (overrides dataset-dir)")
		linksPath   = flag.String("links", "", "Path to links.json (overrides dataset-dir)")
		personsPath = flag.String("persons", "", "Path to persons.json (overrides dataset-dir)")
		workers     = flag.Int("workers", 4, "Number of concurrent workers for ingestion")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "ingest")

	nodesFile, linksFile, personsFile, err := resolveDatasetPaths(*datasetDir, *nodesPath, *linksPath, *personsPath)
	if err != nil {
		logger.Error("dataset resolution failed", "error", err)
		os.Exit(1)
	}

	nodes, err := loadNodeInputs(nodesFile)
	if err != nil {
		logger.Error("failed to load nodes", "error", err, "path", nodesFile)
		os.Exit(1)
	}
	if len(nodes) == 0 {
		logger.Error("nodes dataset empty", "path", nodesFile)
		os.Exit(1)
	}

	links, err := loadLinkInputs(linksFile)
	if err != nil {
		logger.Error("failed to load links", "error", err, "path", linksFile)
		os.Exit(1)
	}

	var persons []service.PersonInput
	if personsFile != "" {
		persons, err = loadPersonInputs(personsFile)
		if err != nil {
			logger.Error("failed to load persons", "error", err, "path", personsFile)
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	graphClient, err := buildGraphClient(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	repo := repository.New(graphClient)
	svc := service.NewStructureService(repo)
	svc.WithUboDefaults(cfg.Engine.MinUboPct, cfg.Engine.MaxPathDepth)
	ingestor := service.NewBulkIngestor(svc, *workers)

	start := time.Now()
	logger.Info("ingesting nodes", "count", len(nodes), "workers", *workers)
	if err := ingestor.IngestNodes(ctx, nodes); err != nil {
		logger.Error("node ingestion failed", "error", err)
		os.Exit(1)
	}

	logger.Info("ingesting links", "count", len(links))
	if err := ingestor.IngestLinks(ctx, links); err != nil {
		logger.Error("link ingestion failed", "error", err)
		os.Exit(1)
	}

	if len(persons) > 0 {
		logger.Info("ingesting persons", "count", len(persons))
		if err := ingestor.IngestPersons(ctx, persons); err != nil {
			logger.Error("person ingestion failed", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("ingestion complete",
		"duration", time.Since(start).String(),
		"nodes", len(nodes),
		"links", len(links),
		"persons", len(persons),
	)
}

func resolveDatasetPaths(baseDir, nodesPath, linksPath, personsPath string) (string, string, string, error) {
	resolve := func(explicitPath, fallbackFile string, required bool) (string, error) {
		if explicitPath != "" {
			if _, err := os.Stat(explicitPath); err != nil {
				return "", fmt.Errorf("stat %s: %w", explicitPath, err)
			}
			return explicitPath, nil
		}
		path := filepath.Join(baseDir, fallbackFile)
		if _, err := os.Stat(path); err != nil {
			if required {
				return "", fmt.Errorf("%w: %s", errMissingDataset, path)
			}
			return "", nil
		}
		return path, nil
	}

	nodesFile, err := resolve(nodesPath, "nodes.json", true)
	if err != nil {
		return "", "", "", err
	}
	linksFile, err := resolve(linksPath, "links.json", true)
	if err != nil {
		return "", "", "", err
	}
	personsFile, err := resolve(personsPath, "persons.json", false)
	if err != nil {
		return "", "", "", err
	}
	return nodesFile, linksFile, personsFile, nil
}

func loadNodeInputs(path string) ([]service.NodeInput, error) {
	var nodes []service.NodeInput
	if err := loadJSON(path, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func loadLinkInputs(path string) ([]service.LinkInput, error) {
	var links []service.LinkInput
	if err := loadJSON(path, &links); err != nil {
		return nil, err
	}
	return links, nil
}

func loadPersonInputs(path string) ([]service.PersonInput, error) {
	var persons []service.PersonInput
	if err := loadJSON(path, &persons); err != nil {
		return nil, err
	}
	return persons, nil
}

func loadJSON(path string, target any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, fmt.Errorf("GRAPH_URI is required for ingestion")
	}
	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	client, err := graph.NewNeo4jClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return client, nil
}
