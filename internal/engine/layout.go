package engine

import (
	"sort"

	"github.com/clearstake/ownergraph/backend/internal/domain"
)

// LayoutConfig drives the deterministic layered layout.
type LayoutConfig struct {
	NodeWidth   float64
	NodeGap     float64
	LevelHeight float64
	CanvasWidth float64
}

// DefaultLayoutConfig returns the standard canvas dimensions used by the
// visual renderer.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		NodeWidth:   180,
		NodeGap:     40,
		LevelHeight: 140,
		CanvasWidth: 1200,
	}
}

// PositionedNode is a node with its computed canvas coordinates. Positions are
// part of the engine's contract with the renderer: same graph, same config,
// same coordinates.
type PositionedNode struct {
	ID    string
	Name  string
	Type  domain.NodeType
	X     float64
	Y     float64
	Level int
}

// CalculateLayout groups nodes by level, orders each row by node id, and
// centers the rows horizontally on the canvas.
func CalculateLayout(g *OwnershipGraph, cfg LayoutConfig) []PositionedNode {
	if cfg.NodeWidth <= 0 || cfg.LevelHeight <= 0 || cfg.CanvasWidth <= 0 {
		cfg = DefaultLayoutConfig()
	}

	rows := make(map[int][]string)
	for _, id := range g.NodeIDs() {
		level := g.Nodes[id].Level
		rows[level] = append(rows[level], id)
	}

	levels := make([]int, 0, len(rows))
	for level := range rows {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	var positioned []PositionedNode
	for _, level := range levels {
		ids := rows[level]
		rowWidth := float64(len(ids))*cfg.NodeWidth + float64(len(ids)-1)*cfg.NodeGap
		startX := (cfg.CanvasWidth - rowWidth) / 2
		y := float64(level) * cfg.LevelHeight

		for i, id := range ids {
			node := g.Nodes[id]
			positioned = append(positioned, PositionedNode{
				ID:    id,
				Name:  node.Node.Name,
				Type:  node.Node.Type,
				X:     startX + float64(i)*(cfg.NodeWidth+cfg.NodeGap),
				Y:     y,
				Level: level,
			})
		}
	}

	return positioned
}
