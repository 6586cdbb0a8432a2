package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/clearstake/ownergraph/backend/internal/domain"
	"github.com/clearstake/ownergraph/backend/internal/engine"
	"github.com/clearstake/ownergraph/backend/internal/service"
)

// loadGraph reads the node and link files, optionally filters them to one
// client, and builds the in-memory graph.
func loadGraph(clientID string) (*engine.OwnershipGraph, error) {
	var nodeInputs []service.NodeInput
	if err := readJSON(nodesPath, &nodeInputs); err != nil {
		return nil, err
	}
	var linkInputs []service.LinkInput
	if err := readJSON(linksPath, &linkInputs); err != nil {
		return nil, err
	}

	structure := domain.Structure{ClientID: clientID}
	for _, in := range nodeInputs {
		if clientID != "" && in.ClientID != clientID {
			continue
		}
		node := domain.OwnershipNode{
			ID:           in.ID,
			ClientID:     in.ClientID,
			Name:         in.Name,
			Type:         domain.NodeType(in.Type),
			Jurisdiction: in.Jurisdiction,
			Status:       in.Status,
			Notes:        in.Notes,
			Value:        in.Value,
		}
		if in.ExternalRef != nil {
			node.ExternalRef = &domain.ExternalRef{Type: in.ExternalRef.Type, ID: in.ExternalRef.ID}
		}
		structure.Nodes = append(structure.Nodes, node)
	}
	for _, in := range linkInputs {
		if clientID != "" && in.ClientID != clientID {
			continue
		}
		link := domain.OwnershipLink{
			ID:             in.ID,
			ClientID:       in.ClientID,
			FromNodeID:     in.FromNodeID,
			ToNodeID:       in.ToNodeID,
			OwnershipPct:   in.OwnershipPct,
			ProfitSharePct: in.ProfitSharePct,
			EffectiveTo:    in.EffectiveTo,
			SourceRef:      in.SourceRef,
		}
		if in.EffectiveFrom != nil {
			link.EffectiveFrom = *in.EffectiveFrom
		} else {
			link.EffectiveFrom = time.Now().UTC()
		}
		structure.Links = append(structure.Links, link)
	}

	if len(structure.Nodes) == 0 {
		return nil, fmt.Errorf("no nodes found in %s (client filter %q)", nodesPath, clientID)
	}

	return engine.BuildGraph(structure.Nodes, structure.Links), nil
}

func loadPersons(clientID string) ([]domain.Person, error) {
	if personsPath == "" {
		return nil, nil
	}
	var inputs []service.PersonInput
	if err := readJSON(personsPath, &inputs); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var persons []domain.Person
	for _, in := range inputs {
		if clientID != "" && in.ClientID != clientID {
			continue
		}
		persons = append(persons, domain.Person{
			ID:         in.ID,
			ExternalID: in.ExternalID,
			Name:       in.Name,
		})
	}
	return persons, nil
}

func readJSON(path string, target any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func emitJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
