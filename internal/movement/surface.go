// Package movement decides each spider's per-tick displacement: workers
// drive build orders or roam the mesh, the matriarch wanders the nest.
package movement

import (
	"math"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/surface"
	"github.com/GroggNorvek/RaSpider/internal/webtask"
)

const (
	// DefaultBranchTolerance widens a branch beyond half its thickness when
	// deciding whether a spider stands on it.
	DefaultBranchTolerance = 10.0
	// DefaultTrunkInset keeps spiders off the bark edge.
	DefaultTrunkInset = 20.0
)

// WebFinder is satisfied by the task system.
type WebFinder interface {
	FindWebAt(p geometry.Vec2) *webtask.Web
}

// Contact is the surface a point was attributed to.
type Contact struct {
	Kind   surface.Kind
	Handle surface.Handle
	Line   surface.Line
}

func (c Contact) OnSurface() bool {
	return c.Kind != surface.None
}

// SurfaceQuery attributes points to surfaces for free movement. Unlike the
// mesh it prefers branches, then the trunk, and only then webs, so a spider
// standing where a web meets the bark steps back onto the tree.
type SurfaceQuery struct {
	surfaces        *surface.Table
	webs            WebFinder
	BranchTolerance float64
	TrunkInset      float64
}

func NewSurfaceQuery(surfaces *surface.Table, webs WebFinder) *SurfaceQuery {
	return &SurfaceQuery{
		surfaces:        surfaces,
		webs:            webs,
		BranchTolerance: DefaultBranchTolerance,
		TrunkInset:      DefaultTrunkInset,
	}
}

func (q *SurfaceQuery) Detect(p geometry.Vec2) Contact {
	if q == nil {
		return Contact{Handle: surface.NoHandle}
	}
	if c, ok := q.nearestBranch(p); ok {
		return c
	}
	if trunk, ok := q.surfaces.Trunk(); ok && trunk.Contains(p) {
		return Contact{Kind: surface.Trunk, Handle: surface.NoHandle}
	}
	if q.webs != nil {
		if web := q.webs.FindWebAt(p); web != nil {
			return Contact{Kind: surface.Web, Handle: web.Handle, Line: web.Line()}
		}
	}
	return Contact{Handle: surface.NoHandle}
}

func (q *SurfaceQuery) nearestBranch(p geometry.Vec2) (Contact, bool) {
	best := Contact{Handle: surface.NoHandle}
	bestDist := math.Inf(1)
	for i := 0; i < q.surfaces.BranchCount(); i++ {
		h := surface.Handle(i)
		line, ok := q.surfaces.Branch(h)
		if !ok {
			continue
		}
		d := line.Distance(p)
		if d >= line.Thickness/2+q.BranchTolerance || d >= bestDist {
			continue
		}
		best = Contact{Kind: surface.Branch, Handle: h, Line: line}
		bestDist = d
	}
	return best, best.Kind == surface.Branch
}

// Constrain snaps next onto the surface it was detected on. When next lies
// on no surface the move is refused and prev is returned with false.
func (q *SurfaceQuery) Constrain(prev, next geometry.Vec2) (geometry.Vec2, bool) {
	contact := q.Detect(next)
	switch contact.Kind {
	case surface.Trunk:
		trunk, _ := q.surfaces.Trunk()
		inner := trunk.Inset(q.TrunkInset)
		return geometry.Vec2{
			X: geometry.Clamp(next.X, inner.X, inner.Right()),
			Y: geometry.Clamp(next.Y, trunk.Y, trunk.Bottom()),
		}, true
	case surface.Branch, surface.Web:
		return contact.Line.Segment.ClosestPoint(next), true
	default:
		return prev, false
	}
}
