package webtask

import (
	"math"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
)

type OrderType string

const (
	Regular OrderType = "REGULAR"
	Nest    OrderType = "NEST"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

// Order is a player request to spin a thread between two points.
type Order struct {
	ID           int           `json:"id"`
	Type         OrderType     `json:"type"`
	Start        geometry.Vec2 `json:"start"`
	End          geometry.Vec2 `json:"end"`
	Length       float64       `json:"length"`
	SilkRequired int           `json:"silkRequired"`
	SilkProgress float64       `json:"silkProgress"`
	Status       Status        `json:"status"`
	// Assigned keeps every spider that drove this order since it was last
	// reopened.
	Assigned  []int         `json:"assigned,omitempty"`
	NearPoint geometry.Vec2 `json:"nearPoint"`
	FarPoint  geometry.Vec2 `json:"farPoint"`
	Partial   *Web          `json:"partial,omitempty"`

	oriented bool
}

// SilkFor returns ceil(length / unit).
func SilkFor(length, unit float64) int {
	if unit <= 0 {
		unit = DefaultUnitLength
	}
	return int(math.Ceil(length / unit))
}

func newOrder(id int, start, end geometry.Vec2, typ OrderType, unit float64) *Order {
	length := start.Dist(end)
	return &Order{
		ID:           id,
		Type:         typ,
		Start:        start,
		End:          end,
		Length:       length,
		SilkRequired: SilkFor(length, unit),
		Status:       StatusPending,
		NearPoint:    start,
		FarPoint:     end,
	}
}

// orient fixes the build direction the first time a spider is assigned.
// Later assignments keep it so progress never flips direction.
func (o *Order) orient(from geometry.Vec2) {
	if o.oriented {
		return
	}
	o.oriented = true
	if from.Dist(o.End) < from.Dist(o.Start) {
		o.NearPoint, o.FarPoint = o.End, o.Start
		return
	}
	o.NearPoint, o.FarPoint = o.Start, o.End
}

// Oriented reports whether near and far have been fixed.
func (o *Order) Oriented() bool {
	return o.oriented
}

func (o *Order) ProgressFraction() float64 {
	if o.SilkRequired <= 0 {
		return 1
	}
	return math.Min(1, o.SilkProgress/float64(o.SilkRequired))
}

// ProgressPoint is where the thread currently ends, measured from NearPoint.
func (o *Order) ProgressPoint() geometry.Vec2 {
	return o.NearPoint.Lerp(o.FarPoint, o.ProgressFraction())
}

// AddSilk adds up to amount towards the requirement and returns what was
// consumed. Progress never exceeds SilkRequired; reaching it completes the
// order.
func (o *Order) AddSilk(amount float64) float64 {
	if amount <= 0 || o.Status == StatusComplete {
		return 0
	}
	remaining := float64(o.SilkRequired) - o.SilkProgress
	consumed := math.Min(amount, remaining)
	o.SilkProgress += consumed
	if o.SilkProgress >= float64(o.SilkRequired) {
		o.SilkProgress = float64(o.SilkRequired)
		o.Status = StatusComplete
	}
	partial := newWeb(o.NearPoint, o.ProgressPoint(), Regular)
	partial.OrderID = o.ID
	partial.Partial = true
	o.Partial = partial
	return consumed
}

func (o *Order) Segment() geometry.Segment {
	return geometry.Segment{A: o.Start, B: o.End}
}
