package scene

import (
	"math"

	"labeltool/internal/labels"
	"labeltool/internal/regions"
	"labeltool/pkg/geometry"
)

// PointEntity wraps a point label.
type PointEntity struct {
	BaseEntity
	model *labels.Point
}

func NewPointEntity(m *labels.Point) *PointEntity {
	return &PointEntity{model: m}
}

func (e *PointEntity) Model() labels.Model { return e.model }

func (e *PointEntity) Distance(p geometry.Point2D) float64 {
	return p.Distance(e.model.Position)
}

func (e *PointEntity) Bounds() (geometry.Rect, bool) {
	return geometry.NewRect(e.model.Position.X, e.model.Position.Y, 0, 0), true
}

func (e *PointEntity) Centroid() geometry.Point2D { return e.model.Position }

// BoxEntity wraps an axis-aligned box label.
type BoxEntity struct {
	BaseEntity
	model *labels.Box
}

func NewBoxEntity(m *labels.Box) *BoxEntity {
	return &BoxEntity{model: m}
}

func (e *BoxEntity) Model() labels.Model { return e.model }

func (e *BoxEntity) Distance(p geometry.Point2D) float64 {
	r := e.model.Rect()
	if r.Contains(p) {
		return 0
	}
	return geometry.ClosestEdgeDistance(p, []geometry.Point2D{
		r.TopLeft(),
		{X: r.X + r.Width, Y: r.Y},
		r.BottomRight(),
		{X: r.X, Y: r.Y + r.Height},
	})
}

func (e *BoxEntity) Bounds() (geometry.Rect, bool) { return e.model.Rect(), true }

func (e *BoxEntity) Centroid() geometry.Point2D { return e.model.Centre }

// PolygonEntity wraps a multi-region polygon label and caches its derived
// geometry.
type PolygonEntity struct {
	BaseEntity
	model *labels.Polygon

	cacheValid bool
	centroid   geometry.Point2D
	bounds     geometry.Rect
	hasBounds  bool
}

func NewPolygonEntity(m *labels.Polygon) *PolygonEntity {
	return &PolygonEntity{model: m}
}

func (e *PolygonEntity) Model() labels.Model { return e.model }

// Polygon returns the typed model.
func (e *PolygonEntity) Polygon() *labels.Polygon { return e.model }

// Regions returns the current region list.
func (e *PolygonEntity) Regions() [][]geometry.Point2D { return e.model.Regions }

// SetRegions replaces the region list. The caller commits.
func (e *PolygonEntity) SetRegions(r [][]geometry.Point2D) {
	if r == nil {
		r = [][]geometry.Point2D{}
	}
	e.model.Regions = r
	e.Update()
}

// Contains applies the even-odd rule over all regions.
func (e *PolygonEntity) Contains(p geometry.Point2D) bool {
	return regions.Contains(e.model.Regions, p)
}

func (e *PolygonEntity) Update() { e.cacheValid = false }

func (e *PolygonEntity) refresh() {
	if e.cacheValid {
		return
	}
	e.centroid = regions.Centroid(e.model.Regions)
	e.bounds, e.hasBounds = regions.Bounds(e.model.Regions)
	e.cacheValid = true
}

func (e *PolygonEntity) Distance(p geometry.Point2D) float64 {
	return regions.Distance(e.model.Regions, p)
}

func (e *PolygonEntity) Bounds() (geometry.Rect, bool) {
	e.refresh()
	return e.bounds, e.hasBounds
}

func (e *PolygonEntity) Centroid() geometry.Point2D {
	e.refresh()
	return e.centroid
}

// placeholderEntity stands in for placeholder models; it has no shape.
type placeholderEntity struct {
	BaseEntity
	model *labels.Placeholder
}

func newPlaceholderEntity(m *labels.Placeholder) *placeholderEntity {
	return &placeholderEntity{model: m}
}

func (e *placeholderEntity) Model() labels.Model { return e.model }

func (e *placeholderEntity) Distance(geometry.Point2D) float64 { return math.Inf(1) }

func (e *placeholderEntity) Bounds() (geometry.Rect, bool) { return geometry.Rect{}, false }

func (e *placeholderEntity) Centroid() geometry.Point2D { return geometry.Point2D{} }
