package assist

import (
	"fmt"
	"math"

	"labeltool/pkg/geometry"
)

// GesturePoints is the number of extreme points in a finished gesture.
const GesturePoints = 4

// Segment returns the path from prev towards p for the i-th side of the
// gesture outline: top to left, left to bottom, bottom to right, right to
// top. The point is pushed at least one pixel past prev along both axes in
// the side's direction, and a corner is inserted so the outline runs
// axis-aligned like a rounded box.
func Segment(i int, prev, p geometry.Point2D) (corner, cur geometry.Point2D) {
	switch i {
	case 0:
		cur = geometry.Point2D{X: math.Min(p.X, prev.X-1), Y: math.Max(p.Y, prev.Y+1)}
		corner = geometry.Point2D{X: cur.X, Y: prev.Y}
	case 1:
		cur = geometry.Point2D{X: math.Max(p.X, prev.X+1), Y: math.Max(p.Y, prev.Y+1)}
		corner = geometry.Point2D{X: prev.X, Y: cur.Y}
	case 2:
		cur = geometry.Point2D{X: math.Max(p.X, prev.X+1), Y: math.Min(p.Y, prev.Y-1)}
		corner = geometry.Point2D{X: cur.X, Y: prev.Y}
	case 3:
		cur = geometry.Point2D{X: math.Min(p.X, prev.X-1), Y: math.Min(p.Y, prev.Y-1)}
		corner = geometry.Point2D{X: prev.X, Y: cur.Y}
	default:
		panic(fmt.Sprintf("assist: invalid gesture side %d", i))
	}
	return corner, cur
}

// Gesture accumulates the extreme points of one object: top, left, bottom
// and right, in that order.
type Gesture struct {
	points []geometry.Point2D
}

// Len returns the number of points placed.
func (g *Gesture) Len() int { return len(g.points) }

// Complete reports whether all four points are placed.
func (g *Gesture) Complete() bool { return len(g.points) == GesturePoints }

// Points returns the placed points.
func (g *Gesture) Points() []geometry.Point2D {
	return append([]geometry.Point2D(nil), g.points...)
}

// Snap returns where a click at p would place the next point, and the
// corner joining it to the previous point. The corner is absent for the
// first point.
func (g *Gesture) Snap(p geometry.Point2D) (corner geometry.Point2D, cur geometry.Point2D, hasCorner bool) {
	n := len(g.points)
	if n == 0 {
		return geometry.Point2D{}, p, false
	}
	corner, cur = Segment(n-1, g.points[n-1], p)
	return corner, cur, true
}

// Add places the next point, snapped by Segment, and returns it. Adding to
// a complete gesture panics.
func (g *Gesture) Add(p geometry.Point2D) geometry.Point2D {
	if g.Complete() {
		panic("assist: gesture already complete")
	}
	_, cur, _ := g.Snap(p)
	g.points = append(g.points, cur)
	return cur
}

// RemoveLast removes the most recent point, if any.
func (g *Gesture) RemoveLast() {
	if n := len(g.points); n > 0 {
		g.points = g.points[:n-1]
	}
}

// Outline returns the display path through the placed points with corners
// inserted; a complete gesture is closed back to the first point.
func (g *Gesture) Outline() []geometry.Point2D {
	if len(g.points) == 0 {
		return nil
	}
	path := []geometry.Point2D{g.points[0]}
	for j := 1; j < len(g.points); j++ {
		corner, cur := Segment(j-1, path[len(path)-1], g.points[j])
		path = append(path, corner, cur)
	}
	if g.Complete() {
		corner, cur := Segment(3, path[len(path)-1], g.points[0])
		path = append(path, corner, cur)
	}
	return path
}
