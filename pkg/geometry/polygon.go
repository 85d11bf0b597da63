package geometry

import "math"

// PointInPolygon tests if a point is inside a closed polygon using the
// crossing-number (ray casting) rule. Polygons with fewer than 3 vertices
// contain nothing. Self-intersecting polygons are handled with even-odd
// semantics.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i], polygon[j]

		// Check if ray from p going right intersects edge pi-pj
		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}

// DistanceToSegment returns the distance from p to the segment a-b.
func DistanceToSegment(p, a, b Point2D) float64 {
	return p.Distance(ClosestPointOnSegment(p, a, b))
}

// ClosestPointOnSegment returns the point on segment a-b nearest to p.
func ClosestPointOnSegment(p, a, b Point2D) Point2D {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return a
	}
	t := p.Sub(a).Dot(ab) / lenSq
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return a.Add(ab.Scale(t))
}

// ClosestEdgeDistance returns the distance from p to the nearest edge of the
// closed polygon. An empty polygon yields +Inf; a single point yields the
// distance to that point.
func ClosestEdgeDistance(p Point2D, polygon []Point2D) float64 {
	n := len(polygon)
	switch n {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Distance(polygon[0])
	}

	best := math.Inf(1)
	for i := 0; i < n; i++ {
		d := DistanceToSegment(p, polygon[i], polygon[(i+1)%n])
		if d < best {
			best = d
		}
	}
	return best
}

// SignedArea returns the signed area of a closed polygon using the shoelace
// formula. The sign depends on the vertex winding.
func SignedArea(polygon []Point2D) float64 {
	n := len(polygon)
	if n < 3 {
		return 0
	}
	var area float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += polygon[i].X*polygon[j].Y - polygon[j].X*polygon[i].Y
	}
	return area / 2
}

// CrossProduct computes the cross product of vectors OA and OB. Positive when
// O, A, B turn counter-clockwise in a y-up frame.
func CrossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// distSq computes the squared distance between two points.
func distSq(a, b Point2D) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return dx*dx + dy*dy
}

// NearlyEqual reports whether two points lie within tol of each other.
func NearlyEqual(a, b Point2D, tol float64) bool {
	return distSq(a, b) <= tol*tol
}
