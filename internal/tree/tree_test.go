package tree

import (
	"reflect"
	"testing"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
)

func TestGenerateIsDeterministic(t *testing.T) {
	a := Generate(DefaultLayout(), "oak")
	b := Generate(DefaultLayout(), "oak")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical trees for identical seeds")
	}
}

func TestGenerateKeepsBranchesOnCanvas(t *testing.T) {
	layout := DefaultLayout()
	canvas := geometry.Rect{W: layout.Width, H: layout.Height}
	for _, seed := range []string{"a", "b", "c", "d", "e"} {
		tr := Generate(layout, seed)
		mains := 0
		for i, b := range tr.Branches {
			if !canvas.Contains(b.End()) {
				t.Fatalf("seed %s branch %d ends off canvas at %+v", seed, i, b.End())
			}
			if b.Parent < 0 {
				mains++
				if b.Start.X != tr.Trunk.X && b.Start.X != tr.Trunk.Right() {
					t.Fatalf("seed %s main branch %d does not start on the trunk edge", seed, i)
				}
				continue
			}
			if b.Parent >= i || tr.Branches[b.Parent].Parent != -1 {
				t.Fatalf("seed %s sub-branch %d has invalid parent %d", seed, i, b.Parent)
			}
		}
		if mains < layout.MinBranches || mains > layout.MaxBranches {
			t.Fatalf("seed %s produced %d main branches", seed, mains)
		}
		if got := len(tr.JunctionRows()); got != mains {
			t.Fatalf("expected %d junction rows, got %d", mains, got)
		}
	}
}

func TestNestForCentresInsideTrunk(t *testing.T) {
	trunk := geometry.Rect{X: 560, Y: 0, W: 80, H: 800}
	nest := NestFor(trunk)
	if nest.Center != (geometry.Vec2{X: 600, Y: 400}) {
		t.Fatalf("unexpected nest centre %+v", nest.Center)
	}
	if nest.RX != 16 || nest.RY != 120 {
		t.Fatalf("unexpected nest radii %f x %f", nest.RX, nest.RY)
	}
}

func TestSurfacesRegistersEverything(t *testing.T) {
	tr := Generate(DefaultLayout(), "table")
	table := tr.Surfaces()
	if table.BranchCount() != len(tr.Branches) {
		t.Fatalf("expected %d branches, got %d", len(tr.Branches), table.BranchCount())
	}
	if table.NestCount() != 1 {
		t.Fatalf("expected nest to be registered")
	}
	if _, ok := table.Trunk(); !ok {
		t.Fatalf("expected trunk to be registered")
	}
}
