package surface

import "github.com/GroggNorvek/RaSpider/internal/geometry"

// Line is a thick straight surface such as a branch or a silk thread.
type Line struct {
	Segment   geometry.Segment
	Thickness float64
}

// Distance reports how far p lies from the centreline.
func (l Line) Distance(p geometry.Vec2) float64 {
	return l.Segment.Distance(p)
}

type webSlot struct {
	line  Line
	alive bool
}

// Table is the arena of concrete surfaces. Handles stay valid for the life
// of the table; removed webs leave a tombstone so stale references resolve
// to nothing instead of to a different web.
type Table struct {
	trunk    geometry.Rect
	hasTrunk bool
	branches []Line
	webs     []webSlot
	nests    []geometry.Ellipse
}

func NewTable() *Table {
	return &Table{}
}

func (t *Table) SetTrunk(r geometry.Rect) {
	t.trunk = r
	t.hasTrunk = true
}

func (t *Table) Trunk() (geometry.Rect, bool) {
	if t == nil {
		return geometry.Rect{}, false
	}
	return t.trunk, t.hasTrunk
}

func (t *Table) AddBranch(l Line) Handle {
	t.branches = append(t.branches, l)
	return Handle(len(t.branches) - 1)
}

func (t *Table) Branch(h Handle) (Line, bool) {
	if t == nil || h < 0 || int(h) >= len(t.branches) {
		return Line{}, false
	}
	return t.branches[h], true
}

// BranchCount reports how many branches were registered. Branch handles are
// dense, so 0..BranchCount-1 are all valid.
func (t *Table) BranchCount() int {
	if t == nil {
		return 0
	}
	return len(t.branches)
}

func (t *Table) AddWeb(l Line) Handle {
	t.webs = append(t.webs, webSlot{line: l, alive: true})
	return Handle(len(t.webs) - 1)
}

func (t *Table) Web(h Handle) (Line, bool) {
	if t == nil || h < 0 || int(h) >= len(t.webs) || !t.webs[h].alive {
		return Line{}, false
	}
	return t.webs[h].line, true
}

// RemoveWeb tombstones the handle. Later lookups report false.
func (t *Table) RemoveWeb(h Handle) {
	if t == nil || h < 0 || int(h) >= len(t.webs) {
		return
	}
	t.webs[h].alive = false
}

func (t *Table) AddNest(e geometry.Ellipse) Handle {
	t.nests = append(t.nests, e)
	return Handle(len(t.nests) - 1)
}

func (t *Table) Nest(h Handle) (geometry.Ellipse, bool) {
	if t == nil || h < 0 || int(h) >= len(t.nests) {
		return geometry.Ellipse{}, false
	}
	return t.nests[h], true
}

func (t *Table) NestCount() int {
	if t == nil {
		return 0
	}
	return len(t.nests)
}

// Resolve reports whether the reference still names a live surface.
func (t *Table) Resolve(r Ref) bool {
	switch r.Kind {
	case Trunk:
		_, ok := t.Trunk()
		return ok
	case Branch:
		_, ok := t.Branch(r.Handle)
		return ok
	case Web:
		_, ok := t.Web(r.Handle)
		return ok
	case Nest:
		_, ok := t.Nest(r.Handle)
		return ok
	case Construction:
		return true
	default:
		return false
	}
}
