// Package tree describes the static structure the colony lives on: a trunk
// rectangle, straight branches with thickness, and the nest cavity.
package tree

import (
	"math"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/surface"
)

// Branch is a straight limb. Main branches grow from the trunk edge and
// carry Parent == -1; sub-branches reference their main branch by index.
type Branch struct {
	Start     geometry.Vec2 `json:"start"`
	Angle     float64       `json:"angle"`
	Length    float64       `json:"length"`
	Thickness float64       `json:"thickness"`
	Parent    int           `json:"parent"`
}

func (b Branch) End() geometry.Vec2 {
	return geometry.Vec2{
		X: b.Start.X + math.Cos(b.Angle)*b.Length,
		Y: b.Start.Y + math.Sin(b.Angle)*b.Length,
	}
}

func (b Branch) Segment() geometry.Segment {
	return geometry.Segment{A: b.Start, B: b.End()}
}

// Tree is the read-only structure consumed by the mesh and the controllers.
type Tree struct {
	Trunk    geometry.Rect     `json:"trunk"`
	Branches []Branch          `json:"branches"`
	Nest     *geometry.Ellipse `json:"nest,omitempty"`
}

// NestFor centres the nest cavity inside the trunk. The ellipse spans 40% of
// the trunk width and 30% of its height.
func NestFor(trunk geometry.Rect) geometry.Ellipse {
	return geometry.Ellipse{
		Center: trunk.Center(),
		RX:     trunk.W * 0.4 / 2,
		RY:     trunk.H * 0.3 / 2,
	}
}

// JunctionRows returns the y coordinates where main branches leave the
// trunk.
func (t Tree) JunctionRows() []float64 {
	rows := make([]float64, 0, len(t.Branches))
	for _, b := range t.Branches {
		if b.Parent >= 0 {
			continue
		}
		rows = append(rows, b.Start.Y)
	}
	return rows
}

// Surfaces registers the trunk, every branch and the nest in a fresh table.
// Branch handles match slice indices; the nest, when present, is handle 0.
func (t Tree) Surfaces() *surface.Table {
	table := surface.NewTable()
	table.SetTrunk(t.Trunk)
	for _, b := range t.Branches {
		table.AddBranch(surface.Line{Segment: b.Segment(), Thickness: b.Thickness})
	}
	if t.Nest != nil {
		table.AddNest(*t.Nest)
	}
	return table
}
