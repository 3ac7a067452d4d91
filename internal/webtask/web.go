package webtask

import (
	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/surface"
)

const (
	RegularThickness      = 0.7
	NestThickness         = 1.5
	DefaultStrength       = 100.0
	DefaultLarderCapacity = 5
)

// Web is a finished silk thread, or the growing partial thread of an order.
// Geometry never changes after creation; only Vibration does.
type Web struct {
	ID        int            `json:"id"`
	Handle    surface.Handle `json:"-"`
	OrderID   int            `json:"orderId"`
	Type      OrderType      `json:"type"`
	Start     geometry.Vec2  `json:"start"`
	End       geometry.Vec2  `json:"end"`
	Thickness float64        `json:"thickness"`
	Strength  float64        `json:"strength"`
	Vibration float64        `json:"vibration"`
	Partial   bool           `json:"partial,omitempty"`
	Larder    *Larder        `json:"larder,omitempty"`
}

func newWeb(start, end geometry.Vec2, typ OrderType) *Web {
	w := &Web{
		ID:        -1,
		Handle:    surface.NoHandle,
		Type:      typ,
		Start:     start,
		End:       end,
		Thickness: RegularThickness,
		Strength:  DefaultStrength,
	}
	if typ == Nest {
		w.Thickness = NestThickness
	}
	return w
}

func (w *Web) Segment() geometry.Segment {
	return geometry.Segment{A: w.Start, B: w.End}
}

func (w *Web) DistanceTo(p geometry.Vec2) float64 {
	return w.Segment().Distance(p)
}

// ClosestPoint falls back to Start for a zero-length web.
func (w *Web) ClosestPoint(p geometry.Vec2) geometry.Vec2 {
	return w.Segment().ClosestPoint(p)
}

// IsNear reports whether p lies strictly within threshold of the thread.
func (w *Web) IsNear(p geometry.Vec2, threshold float64) bool {
	return w.DistanceTo(p) < threshold
}

func (w *Web) Line() surface.Line {
	return surface.Line{Segment: w.Segment(), Thickness: w.Thickness}
}

// Larder stores captured prey on a nest web up to a fixed capacity.
type Larder struct {
	Capacity int   `json:"capacity"`
	Stored   []int `json:"stored"`
}

func NewLarder(capacity int) *Larder {
	if capacity <= 0 {
		capacity = DefaultLarderCapacity
	}
	return &Larder{Capacity: capacity}
}

// Store adds the prey id and reports false once the larder is full.
func (l *Larder) Store(preyID int) bool {
	if l == nil || l.Full() {
		return false
	}
	l.Stored = append(l.Stored, preyID)
	return true
}

func (l *Larder) Full() bool {
	return l != nil && len(l.Stored) >= l.Capacity
}

func (l *Larder) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Stored)
}
