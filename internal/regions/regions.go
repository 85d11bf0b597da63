// Package regions implements geometry over multi-region polygons: lists of
// closed vertex loops combined with the even-odd fill rule.
package regions

import (
	"math"

	"labeltool/pkg/geometry"
)

// Contains reports whether p lies inside an odd number of regions. Regions
// with fewer than three vertices contain nothing.
func Contains(regions [][]geometry.Point2D, p geometry.Point2D) bool {
	count := 0
	for _, r := range regions {
		if geometry.PointInPolygon(p, r) {
			count++
		}
	}
	return count%2 == 1
}

// Distance returns 0 when p is inside, otherwise the distance from p to the
// nearest edge of any region. Empty region sets are infinitely far away.
func Distance(regions [][]geometry.Point2D, p geometry.Point2D) float64 {
	if Contains(regions, p) {
		return 0
	}
	best := math.Inf(1)
	for _, r := range regions {
		if d := geometry.ClosestEdgeDistance(p, r); d < best {
			best = d
		}
	}
	return best
}

// Centroid returns the mean of the per-region vertex centroids. It is not
// area weighted. Empty regions are ignored.
func Centroid(regions [][]geometry.Point2D) geometry.Point2D {
	var centres []geometry.Point2D
	for _, r := range regions {
		if len(r) > 0 {
			centres = append(centres, geometry.Centroid(r))
		}
	}
	return geometry.Centroid(centres)
}

// Bounds returns the union of the per-region bounding boxes. The second
// result is false when there are no vertices at all.
func Bounds(regions [][]geometry.Point2D) (geometry.Rect, bool) {
	var box geometry.Rect
	found := false
	for _, r := range regions {
		if len(r) == 0 {
			continue
		}
		b := geometry.BoundingBox(r)
		if !found {
			box = b
			found = true
		} else {
			box = box.Union(b)
		}
	}
	return box, found
}

// Clone returns a deep copy of the region list.
func Clone(regions [][]geometry.Point2D) [][]geometry.Point2D {
	if regions == nil {
		return nil
	}
	out := make([][]geometry.Point2D, len(regions))
	for i, r := range regions {
		out[i] = append([]geometry.Point2D(nil), r...)
	}
	return out
}

// VertexCount returns the total number of vertices over all regions.
func VertexCount(regions [][]geometry.Point2D) int {
	n := 0
	for _, r := range regions {
		n += len(r)
	}
	return n
}

// Area returns the even-odd filled area of the region list.
func Area(regions [][]geometry.Point2D) float64 {
	var area float64
	for _, r := range Normalize(regions) {
		area += geometry.SignedArea(r)
	}
	return math.Abs(area)
}
