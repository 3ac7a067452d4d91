package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentClosestPointClampsToEnds(t *testing.T) {
	seg := Segment{A: Vec2{X: 0, Y: 0}, B: Vec2{X: 10, Y: 0}}

	cases := []struct {
		name string
		p    Vec2
		want Vec2
	}{
		{name: "before-start", p: Vec2{X: -5, Y: 3}, want: Vec2{X: 0, Y: 0}},
		{name: "middle", p: Vec2{X: 4, Y: -2}, want: Vec2{X: 4, Y: 0}},
		{name: "past-end", p: Vec2{X: 14, Y: 1}, want: Vec2{X: 10, Y: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, seg.ClosestPoint(tc.p))
		})
	}

	assert.InDelta(t, 2.0, seg.Distance(Vec2{X: 4, Y: -2}), 1e-9)
}

func TestDegenerateSegmentDistance(t *testing.T) {
	seg := Segment{A: Vec2{X: 3, Y: 4}, B: Vec2{X: 3, Y: 4}}
	require.Equal(t, 0.0, seg.Project(Vec2{X: 10, Y: 10}))
	assert.InDelta(t, 5.0, seg.Distance(Vec2{X: 0, Y: 0}), 1e-9)
}

func TestSegmentFromPolar(t *testing.T) {
	seg := SegmentFromPolar(Vec2{X: 1, Y: 1}, math.Pi/2, 10)
	assert.InDelta(t, 1.0, seg.B.X, 1e-9)
	assert.InDelta(t, 11.0, seg.B.Y, 1e-9)
	assert.InDelta(t, 10.0, seg.Len(), 1e-9)
}

func TestRectContainsAndInset(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 40, H: 100}
	assert.True(t, r.Contains(Vec2{X: 10, Y: 20}), "edges are inside")
	assert.True(t, r.Contains(Vec2{X: 50, Y: 120}))
	assert.False(t, r.Contains(Vec2{X: 50.01, Y: 60}))

	inner := r.Inset(30)
	assert.Equal(t, 30.0, inner.X, "inset collapses onto centre line")
	assert.Equal(t, 0.0, inner.W)
	assert.Equal(t, Rect{X: 30, Y: 50, W: 0, H: 40}, inner)
	assert.Equal(t, Vec2{X: 30, Y: 90}, inner.ClampPoint(Vec2{X: 0, Y: 500}))
}

func TestRectIntersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	got, ok := a.Intersect(Rect{X: 5, Y: -5, W: 10, H: 10})
	require.True(t, ok)
	assert.Equal(t, Rect{X: 5, Y: 0, W: 5, H: 5}, got)

	_, ok = a.Intersect(Rect{X: 20, Y: 20, W: 1, H: 1})
	assert.False(t, ok)
}

func TestEllipseContainsWithMargin(t *testing.T) {
	e := Ellipse{Center: Vec2{X: 100, Y: 100}, RX: 20, RY: 10}
	assert.True(t, e.Contains(Vec2{X: 119, Y: 100}, 1))
	assert.False(t, e.Contains(Vec2{X: 100, Y: 110.5}, 1))
	assert.True(t, e.Contains(Vec2{X: 100, Y: 110.5}, 1.1))
	assert.False(t, Ellipse{}.Contains(Vec2{}, 1), "zero radii contain nothing")
}

func TestToward(t *testing.T) {
	from := Vec2{X: 0, Y: 0}
	assert.Equal(t, Vec2{X: 3, Y: 0}, from.Toward(Vec2{X: 10, Y: 0}, 3))
	assert.Equal(t, Vec2{X: 1, Y: 1}, from.Toward(Vec2{X: 1, Y: 1}, 5), "never overshoots")
}
