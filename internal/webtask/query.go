package webtask

import (
	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/surface"
)

// FindWebAt returns the partial or finished web within WebQueryRadius of p.
// Partial webs of active orders are checked first.
func (s *System) FindWebAt(p geometry.Vec2) *Web {
	for _, order := range s.orders {
		if order.Partial != nil && order.Partial.IsNear(p, WebQueryRadius) {
			return order.Partial
		}
	}
	for _, web := range s.webs {
		if web.IsNear(p, WebQueryRadius) {
			return web
		}
	}
	return nil
}

// SurfaceHit describes what a click or drag endpoint landed on.
type SurfaceHit struct {
	Kind   HitKind
	Point  geometry.Vec2
	Order  *Order
	Web    *Web
	Branch surface.Handle
}

type HitKind string

const (
	HitOrder  HitKind = "order"
	HitWeb    HitKind = "web"
	HitBranch HitKind = "branch"
	HitNest   HitKind = "nest"
	HitTrunk  HitKind = "trunk"
)

// FindSurfaceAt resolves p against, in order: active order lines, finished
// webs, branches, the nest, and a narrow band along the trunk's left edge.
// The first match wins and the hit point is p itself.
func (s *System) FindSurfaceAt(p geometry.Vec2) (SurfaceHit, bool) {
	hit := SurfaceHit{Point: p, Branch: surface.NoHandle}
	for _, order := range s.orders {
		if order.Segment().Distance(p) < SurfaceQueryRadius {
			hit.Kind = HitOrder
			hit.Order = order
			return hit, true
		}
	}
	for _, web := range s.webs {
		if web.IsNear(p, SurfaceQueryRadius) {
			hit.Kind = HitWeb
			hit.Web = web
			return hit, true
		}
	}
	for i := 0; i < s.surfaces.BranchCount(); i++ {
		line, ok := s.surfaces.Branch(surface.Handle(i))
		if ok && line.Distance(p) < line.Thickness/2 {
			hit.Kind = HitBranch
			hit.Branch = surface.Handle(i)
			return hit, true
		}
	}
	if s.inNest(p, 1) {
		hit.Kind = HitNest
		return hit, true
	}
	if trunk, ok := s.surfaces.Trunk(); ok {
		edge := geometry.Rect{X: trunk.X, Y: trunk.Y, W: TrunkEdgeMargin, H: trunk.H}
		if edge.Contains(p) {
			hit.Kind = HitTrunk
			return hit, true
		}
	}
	return SurfaceHit{}, false
}

func (s *System) inNest(p geometry.Vec2, margin float64) bool {
	for i := 0; i < s.surfaces.NestCount(); i++ {
		if nest, ok := s.surfaces.Nest(surface.Handle(i)); ok && nest.Contains(p, margin) {
			return true
		}
	}
	return false
}

// ResolveDrag turns a drag gesture into an order. Both endpoints must land
// on a surface; the order is a nest web when both lie inside the nest
// enlarged by NestDragMargin.
func (s *System) ResolveDrag(start, end geometry.Vec2) (geometry.Vec2, geometry.Vec2, OrderType, error) {
	from, ok := s.FindSurfaceAt(start)
	if !ok {
		return geometry.Vec2{}, geometry.Vec2{}, Regular, ErrNoSurface
	}
	to, ok := s.FindSurfaceAt(end)
	if !ok {
		return geometry.Vec2{}, geometry.Vec2{}, Regular, ErrNoSurface
	}
	typ := Regular
	if s.inNest(from.Point, NestDragMargin) && s.inNest(to.Point, NestDragMargin) {
		typ = Nest
	}
	return from.Point, to.Point, typ, nil
}
