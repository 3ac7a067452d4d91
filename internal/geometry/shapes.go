package geometry

import "math"

// Segment is a straight line between two points.
type Segment struct {
	A Vec2 `json:"a" msgpack:"a"`
	B Vec2 `json:"b" msgpack:"b"`
}

// SegmentFromPolar builds the segment starting at start, heading angle
// radians, with the given length.
func SegmentFromPolar(start Vec2, angle, length float64) Segment {
	return Segment{
		A: start,
		B: Vec2{X: start.X + math.Cos(angle)*length, Y: start.Y + math.Sin(angle)*length},
	}
}

func (s Segment) Len() float64 {
	return s.A.Dist(s.B)
}

// Project returns the clamped parameter t in [0,1] of the point on the
// segment nearest to p. Degenerate segments report 0.
func (s Segment) Project(p Vec2) float64 {
	dx := s.B.X - s.A.X
	dy := s.B.Y - s.A.Y
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return 0
	}
	t := ((p.X-s.A.X)*dx + (p.Y-s.A.Y)*dy) / lengthSq
	return Clamp(t, 0, 1)
}

// ClosestPoint returns the point on the segment nearest to p.
func (s Segment) ClosestPoint(p Vec2) Vec2 {
	return s.A.Lerp(s.B, s.Project(p))
}

// Distance reports the distance from p to the segment.
func (s Segment) Distance(p Vec2) float64 {
	return p.Dist(s.ClosestPoint(p))
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	W float64 `json:"w" msgpack:"w"`
	H float64 `json:"h" msgpack:"h"`
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

func (r Rect) Center() Vec2 {
	return Vec2{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Contains reports whether p lies inside the rectangle, edges included.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Inset shrinks the rectangle by margin on every side. A margin larger than
// half a dimension collapses that dimension onto the centre line.
func (r Rect) Inset(margin float64) Rect {
	out := r
	mx := math.Min(margin, r.W/2)
	my := math.Min(margin, r.H/2)
	out.X += mx
	out.Y += my
	out.W -= 2 * mx
	out.H -= 2 * my
	return out
}

// ClampPoint moves p onto the closest point inside the rectangle.
func (r Rect) ClampPoint(p Vec2) Vec2 {
	return Vec2{X: Clamp(p.X, r.X, r.Right()), Y: Clamp(p.Y, r.Y, r.Bottom())}
}

// Intersect returns the overlap of two rectangles and whether it is
// non-empty.
func (r Rect) Intersect(o Rect) (Rect, bool) {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.Right(), o.Right())
	y1 := math.Min(r.Bottom(), o.Bottom())
	if x1 < x0 || y1 < y0 {
		return Rect{}, false
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}, true
}

// Ellipse is an axis-aligned ellipse given by its centre and radii.
type Ellipse struct {
	Center Vec2    `json:"center" msgpack:"center"`
	RX     float64 `json:"rx" msgpack:"rx"`
	RY     float64 `json:"ry" msgpack:"ry"`
}

// Contains reports whether p lies inside the ellipse scaled by margin
// (1.0 is the ellipse itself).
func (e Ellipse) Contains(p Vec2, margin float64) bool {
	rx := e.RX * margin
	ry := e.RY * margin
	if rx <= 0 || ry <= 0 {
		return false
	}
	dx := (p.X - e.Center.X) / rx
	dy := (p.Y - e.Center.Y) / ry
	return dx*dx+dy*dy <= 1
}

// Bounds returns the bounding rectangle of the ellipse.
func (e Ellipse) Bounds() Rect {
	return Rect{X: e.Center.X - e.RX, Y: e.Center.Y - e.RY, W: 2 * e.RX, H: 2 * e.RY}
}
