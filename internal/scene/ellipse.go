package scene

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"labeltool/internal/labels"
	"labeltool/pkg/geometry"
)

// ellipseOutlineSegments is the number of segments used to approximate the
// outline when measuring distance from outside.
const ellipseOutlineSegments = 64

// EllipseEntity wraps an oriented ellipse label.
type EllipseEntity struct {
	BaseEntity
	model *labels.OrientedEllipse
}

func NewEllipseEntity(m *labels.OrientedEllipse) *EllipseEntity {
	return &EllipseEntity{model: m}
}

func (e *EllipseEntity) Model() labels.Model { return e.model }

// frame maps unit-circle coordinates to image offsets from the centre:
// scale by the radii, then rotate by the orientation.
func (e *EllipseEntity) frame() *mat.Dense {
	c, s := math.Cos(e.model.OrientationRadians), math.Sin(e.model.OrientationRadians)
	r1, r2 := e.model.Radius1, e.model.Radius2
	return mat.NewDense(2, 2, []float64{
		c * r1, -s * r2,
		s * r1, c * r2,
	})
}

// Contains reports whether p lies inside the ellipse. Degenerate ellipses
// contain nothing.
func (e *EllipseEntity) Contains(p geometry.Point2D) bool {
	if e.model.Radius1 == 0 || e.model.Radius2 == 0 {
		return false
	}
	d := p.Sub(e.model.Centre)
	var u mat.VecDense
	if err := u.SolveVec(e.frame(), mat.NewVecDense(2, []float64{d.X, d.Y})); err != nil {
		// A Condition error still carries a usable solution.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return false
		}
	}
	return u.AtVec(0)*u.AtVec(0)+u.AtVec(1)*u.AtVec(1) <= 1
}

// Outline returns n points on the ellipse boundary.
func (e *EllipseEntity) Outline(n int) []geometry.Point2D {
	f := e.frame()
	pts := make([]geometry.Point2D, n)
	var v mat.VecDense
	for i := range pts {
		t := float64(i) * 2 * math.Pi / float64(n)
		v.MulVec(f, mat.NewVecDense(2, []float64{math.Cos(t), math.Sin(t)}))
		pts[i] = e.model.Centre.Add(geometry.Point2D{X: v.AtVec(0), Y: v.AtVec(1)})
	}
	return pts
}

func (e *EllipseEntity) Distance(p geometry.Point2D) float64 {
	if e.Contains(p) {
		return 0
	}
	return geometry.ClosestEdgeDistance(p, e.Outline(ellipseOutlineSegments))
}

func (e *EllipseEntity) Bounds() (geometry.Rect, bool) {
	c, s := math.Cos(e.model.OrientationRadians), math.Sin(e.model.OrientationRadians)
	r1, r2 := e.model.Radius1, e.model.Radius2
	hx := math.Hypot(r1*c, r2*s)
	hy := math.Hypot(r1*s, r2*c)
	return geometry.NewRect(e.model.Centre.X-hx, e.model.Centre.Y-hy, 2*hx, 2*hy), true
}

func (e *EllipseEntity) Centroid() geometry.Point2D { return e.model.Centre }
