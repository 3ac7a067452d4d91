package movement

import (
	"math/rand"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/navmesh"
)

const (
	PathStallThresholdTicks = 6
	PathPushRecalcThreshold = 4.0
	PathRecalcCooldownTicks = 8
)

// Navigator is the read side of the navigation mesh. *navmesh.Mesh
// satisfies it.
type Navigator interface {
	PathBetween(from, to geometry.Vec2) []geometry.Vec2
	RandomWalkable(rng *rand.Rand) *navmesh.Node
	Generation() uint64
	Spacing() float64
}

type FollowStatus uint8

const (
	FollowIdle FollowStatus = iota
	FollowMoving
	FollowArrived
	FollowStalled
)

// PathFollower walks a list of waypoints, advancing once within NodeRadius
// of a waypoint and flagging a stall when the distance to the next
// waypoint stops shrinking.
type PathFollower struct {
	Path         []geometry.Vec2
	Index        int
	Goal         geometry.Vec2
	Target       geometry.Vec2
	NodeRadius   float64
	ArriveRadius float64
	Generation   uint64

	lastDistance float64
	stallTicks   int
	recalcTick   uint64
}

func NewPathFollower(spacing float64) PathFollower {
	return PathFollower{NodeRadius: spacing * 0.5, ArriveRadius: spacing * 0.5}
}

func (f *PathFollower) Active() bool {
	return len(f.Path) > 0 && f.Index < len(f.Path)
}

func (f *PathFollower) Clear() {
	f.Path = nil
	f.Index = 0
	f.Goal = geometry.Vec2{}
	f.Target = geometry.Vec2{}
	f.lastDistance = 0
	f.stallTicks = 0
}

// Ensure installs a path to target unless the current one already leads
// there and the mesh has not changed since it was planned. The second
// result reports whether a new search ran, so callers can tell a fresh
// failure from one still cooling down.
func (f *PathFollower) Ensure(nav Navigator, from, target geometry.Vec2, tick uint64) (bool, bool) {
	if nav == nil {
		f.Clear()
		return false, false
	}
	gen := nav.Generation()
	if f.Active() && gen == f.Generation && f.Target.Dist(target) <= f.NodeRadius {
		return true, false
	}
	if !f.Active() && tick < f.recalcTick && f.Target.Dist(target) <= f.NodeRadius {
		return false, false
	}
	path := nav.PathBetween(from, target)
	f.Clear()
	f.Target = target
	f.Generation = gen
	if len(path) == 0 {
		f.recalcTick = tick + PathRecalcCooldownTicks
		return false, true
	}
	f.Path = path
	f.Goal = path[len(path)-1]
	f.recalcTick = tick + 1
	return true, true
}

// Step moves pos at most speed units along the path.
func (f *PathFollower) Step(pos geometry.Vec2, speed float64) (geometry.Vec2, FollowStatus) {
	if len(f.Path) == 0 {
		return pos, FollowIdle
	}
	for f.Index < len(f.Path) {
		node := f.Path[f.Index]
		dist := pos.Dist(node)
		limit := f.NodeRadius
		if f.Index == len(f.Path)-1 {
			limit = f.ArriveRadius
		}
		if dist <= limit {
			f.Index++
			f.lastDistance = 0
			f.stallTicks = 0
			continue
		}

		if f.lastDistance == 0 || dist+0.1 < f.lastDistance {
			f.lastDistance = dist
			f.stallTicks = 0
		} else {
			f.stallTicks++
			if f.stallTicks >= PathStallThresholdTicks || dist > f.lastDistance+PathPushRecalcThreshold {
				f.stallTicks = 0
				return pos, FollowStalled
			}
		}
		return pos.Toward(node, speed), FollowMoving
	}
	return pos, FollowArrived
}
