package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/clearstake/ownergraph/backend/internal/service"
)

// Dataset contains the generated nodes, links and persons.
type Dataset struct {
	Nodes   []service.NodeInput   `json:"nodes"`
	Links   []service.LinkInput   `json:"links"`
	Persons []service.PersonInput `json:"persons"`
}

// Generator produces synthetic ownership structures aligned with the analysis schema.
type Generator struct {
	cfg       Config
	rand      *rand.Rand
	fragments nameFragments
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	defaults := DefaultConfig()
	if cfg.NumHouseholds <= 0 {
		cfg.NumHouseholds = defaults.NumHouseholds
	}
	if cfg.MaxEntitiesPerLevel <= 0 {
		cfg.MaxEntitiesPerLevel = defaults.MaxEntitiesPerLevel
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaults.MaxDepth
	}
	if cfg.PersonsPerHousehold <= 0 {
		cfg.PersonsPerHousehold = defaults.PersonsPerHousehold
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:       cfg,
		rand:      rand.New(rand.NewSource(cfg.Seed)),
		fragments: defaultNameFragments(),
	}
}

// Generate synthesises ownership structures. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	var dataset Dataset
	now := time.Now().UTC()

	for h := 0; h < g.cfg.NumHouseholds; h++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		g.generateHousehold(&dataset, h+1, now)
	}

	return dataset, nil
}

// generateHousehold builds one client structure: a household root, a layered
// tree of holding vehicles below it, and accounts or assets at the bottom.
func (g *Generator) generateHousehold(dataset *Dataset, seq int, now time.Time) {
	clientID := fmt.Sprintf("CL-%04d", seq)
	familyName := g.fragments.families[g.rand.Intn(len(g.fragments.families))]

	rootID := fmt.Sprintf("%s-HH", clientID)
	dataset.Nodes = append(dataset.Nodes, service.NodeInput{
		ID:       rootID,
		ClientID: clientID,
		Name:     fmt.Sprintf("%s Household", familyName),
		Type:     "household",
		Status:   "active",
	})

	for p := 0; p < g.cfg.PersonsPerHousehold; p++ {
		dataset.Persons = append(dataset.Persons, service.PersonInput{
			ID:         fmt.Sprintf("%s-P%d", clientID, p+1),
			ClientID:   clientID,
			ExternalID: fmt.Sprintf("crm-%s-%d", clientID, p+1),
			Name:       fmt.Sprintf("%s %s", g.fragments.first[g.rand.Intn(len(g.fragments.first))], familyName),
		})
	}

	linkSeq := 0
	effectiveFrom := now.Add(-time.Duration(g.rand.Intn(10*365*24)) * time.Hour)

	parents := []string{rootID}
	var all []string

	for depth := 1; depth <= g.cfg.MaxDepth; depth++ {
		width := 1 + g.rand.Intn(g.cfg.MaxEntitiesPerLevel)
		leafLevel := depth == g.cfg.MaxDepth

		level := make([]string, 0, width)
		for i := 0; i < width; i++ {
			nodeType := g.randomVehicleType()
			if leafLevel {
				nodeType = g.randomLeafType()
			}

			nodeID := fmt.Sprintf("%s-D%dN%d", clientID, depth, i+1)
			node := service.NodeInput{
				ID:           nodeID,
				ClientID:     clientID,
				Name:         g.nodeName(familyName, nodeType, depth, i+1),
				Type:         nodeType,
				Jurisdiction: g.randomJurisdiction(),
				Status:       "active",
			}
			if nodeType == "account" || nodeType == "asset" {
				value := float64(g.rand.Intn(95)+5) * 100000
				node.Value = &value
			}
			dataset.Nodes = append(dataset.Nodes, node)
			level = append(level, nodeID)
			all = append(all, nodeID)

			// Split ownership of this node across one or two parents.
			owners := 1
			if len(parents) > 1 && g.rand.Float64() < 0.4 {
				owners = 2
			}
			first := g.rand.Intn(len(parents))
			split := 100.0
			if owners == 2 {
				split = float64(40 + g.rand.Intn(41))
			}

			linkSeq++
			dataset.Links = append(dataset.Links, service.LinkInput{
				ID:            fmt.Sprintf("%s-L%03d", clientID, linkSeq),
				ClientID:      clientID,
				FromNodeID:    parents[first],
				ToNodeID:      nodeID,
				OwnershipPct:  split,
				EffectiveFrom: &effectiveFrom,
				SourceRef:     g.randomSourceRef(),
			})

			if owners == 2 {
				second := (first + 1 + g.rand.Intn(len(parents)-1)) % len(parents)
				remainder := 100 - split
				if g.rand.Float64() < g.cfg.OverOwnershipChance {
					remainder += float64(5 + g.rand.Intn(16))
				}
				linkSeq++
				dataset.Links = append(dataset.Links, service.LinkInput{
					ID:            fmt.Sprintf("%s-L%03d", clientID, linkSeq),
					ClientID:      clientID,
					FromNodeID:    parents[second],
					ToNodeID:      nodeID,
					OwnershipPct:  remainder,
					EffectiveFrom: &effectiveFrom,
					SourceRef:     g.randomSourceRef(),
				})
			}
		}

		if !leafLevel {
			parents = level
		}
	}

	// Rare deliberate cycle between holding vehicles, used to exercise loop
	// detection downstream.
	if len(all) > 2 && g.rand.Float64() < g.cfg.CycleChance {
		from := all[len(all)-1]
		to := all[g.rand.Intn(len(all)-1)]
		linkSeq++
		dataset.Links = append(dataset.Links, service.LinkInput{
			ID:            fmt.Sprintf("%s-L%03d", clientID, linkSeq),
			ClientID:      clientID,
			FromNodeID:    from,
			ToNodeID:      to,
			OwnershipPct:  float64(5 + g.rand.Intn(20)),
			EffectiveFrom: &effectiveFrom,
			SourceRef:     g.randomSourceRef(),
		})
	}
}

func (g *Generator) nodeName(family, nodeType string, depth, seq int) string {
	switch nodeType {
	case "trust":
		return fmt.Sprintf("%s %s Trust", family, g.fragments.qualifiers[g.rand.Intn(len(g.fragments.qualifiers))])
	case "partnership":
		return fmt.Sprintf("%s Partners %s", family, g.fragments.suffixes[g.rand.Intn(len(g.fragments.suffixes))])
	case "spv":
		return fmt.Sprintf("%s SPV %d-%d", family, depth, seq)
	case "account":
		return fmt.Sprintf("%s Account %08d", g.fragments.custodians[g.rand.Intn(len(g.fragments.custodians))], g.rand.Intn(100000000))
	case "asset":
		return fmt.Sprintf("%s %s", family, g.fragments.assets[g.rand.Intn(len(g.fragments.assets))])
	default:
		return fmt.Sprintf("%s %s %s", family, g.fragments.qualifiers[g.rand.Intn(len(g.fragments.qualifiers))],
			g.fragments.suffixes[g.rand.Intn(len(g.fragments.suffixes))])
	}
}

func (g *Generator) randomVehicleType() string {
	types := []string{"entity", "entity", "trust", "partnership", "spv"}
	return types[g.rand.Intn(len(types))]
}

func (g *Generator) randomLeafType() string {
	if g.rand.Float64() < 0.6 {
		return "account"
	}
	return "asset"
}

func (g *Generator) randomJurisdiction() string {
	return g.fragments.jurisdictions[g.rand.Intn(len(g.fragments.jurisdictions))]
}

func (g *Generator) randomSourceRef() string {
	return fmt.Sprintf("DOC-%06d", g.rand.Intn(1000000))
}

type nameFragments struct {
	families      []string
	first         []string
	qualifiers    []string
	suffixes      []string
	custodians    []string
	assets        []string
	jurisdictions []string
}

func defaultNameFragments() nameFragments {
	return nameFragments{
		families:      []string{"Aldrin", "Beaumont", "Castellan", "Dunmore", "Eastgate", "Fairholm", "Gresham", "Hollis", "Ingram", "Jardine", "Kessler", "Lockwood", "Merrick", "Norwood", "Oakes"},
		first:         []string{"Eleanor", "Marcus", "Ingrid", "Tobias", "Celeste", "Rupert", "Annika", "Felix", "Margot", "Victor"},
		qualifiers:    []string{"Family", "Legacy", "Heritage", "Dynasty", "Founders", "Capital", "Global"},
		suffixes:      []string{"LLC", "Ltd", "GmbH", "SA", "LP", "Holdings"},
		custodians:    []string{"Pictet", "Julius Baer", "UBS", "Northern", "StateStreet", "BNY"},
		assets:        []string{"Residence", "Vineyard", "Art Collection", "Yacht", "Aircraft", "Commercial Property"},
		jurisdictions: []string{"CH", "LU", "KY", "JE", "SG", "US", "GB", "LI", "BVI", ""},
	}
}
