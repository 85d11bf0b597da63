package polyedit

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"labeltool/internal/regions"
	"labeltool/internal/tools"
	"labeltool/pkg/geometry"
)

// BrushTool paints regions by dragging a round brush. Each drag step adds
// a stamp covering the path from the previous pointer position; the strokes
// of one button press are handed to the edit tool on release.
type BrushTool struct {
	tools.Base
	edit     *EditTool
	settings Settings
	radius   float64

	strokes [][]geometry.Point2D
	lastPos *geometry.Point2D
	cursor  geometry.Point2D
}

func newBrushTool(edit *EditTool, settings Settings) *BrushTool {
	t := &BrushTool{edit: edit, settings: settings}
	t.setRadius(settings.BrushRadius)
	return t
}

// Radius returns the brush radius.
func (t *BrushTool) Radius() float64 { return t.radius }

// Strokes returns the regions painted since the button went down.
func (t *BrushTool) Strokes() [][]geometry.Point2D { return regions.Clone(t.strokes) }

// Cursor returns the last pointer position seen by the brush.
func (t *BrushTool) Cursor() geometry.Point2D { return t.cursor }

func (t *BrushTool) setRadius(r float64) {
	t.radius = math.Max(r, t.settings.MinRadius)
}

func (t *BrushTool) Shutdown() {
	t.strokes = nil
	t.lastPos = nil
}

func (t *BrushTool) ButtonDown(pos geometry.Point2D, _ tools.Event) {
	t.lastPos = &pos
}

func (t *BrushTool) ButtonUp(geometry.Point2D, tools.Event) {
	t.lastPos = nil
	strokes := t.strokes
	t.strokes = nil
	if len(strokes) > 0 {
		t.edit.NotifyDraw(strokes)
	}
}

func (t *BrushTool) Move(pos geometry.Point2D) {
	t.cursor = pos
}

func (t *BrushTool) Drag(pos geometry.Point2D, _ tools.Event) bool {
	start := pos
	if t.lastPos != nil {
		start = *t.lastPos
	}
	t.lastPos = &pos
	t.cursor = pos

	t.strokes = addStamp(t.strokes, t.Stamp(start, pos))
	return true
}

// addStamp unions a stamp into normalized strokes. Loops whose bounds miss
// the stamp cannot change, so only the loops near it are recombined.
func addStamp(strokes [][]geometry.Point2D, stamp []geometry.Point2D) [][]geometry.Point2D {
	box := geometry.BoundingBox(stamp).Expand(1)
	var near, far [][]geometry.Point2D
	for _, r := range strokes {
		if geometry.BoundingBox(r).Intersects(box) {
			near = append(near, r)
		} else {
			far = append(far, r)
		}
	}
	return append(far, regions.Union(near, [][]geometry.Point2D{stamp})...)
}

func (t *BrushTool) Wheel(_ geometry.Point2D, _, dy float64) bool {
	t.setRadius(t.radius + dy*t.settings.WheelRate)
	return true
}

// KeyDown shrinks the brush on '[' or '-' and grows it on ']' or '+'.
func (t *BrushTool) KeyDown(k tools.Key) bool {
	switch k.Rune {
	case '[', '-':
		t.setRadius(t.radius - t.settings.KeyRate)
	case ']', '+':
		t.setRadius(t.radius + t.settings.KeyRate)
	default:
		return false
	}
	return true
}

// Stamp approximates the capsule swept by the brush moving from start to
// end. Vertices on the side facing the motion sit around end, the others
// around start.
func (t *BrushTool) Stamp(start, end geometry.Point2D) []geometry.Point2D {
	n := t.settings.BrushSegments
	if n < 3 {
		n = 3
	}
	delta := r2.Sub(end.Vec(), start.Vec())
	step := 2 * math.Pi / float64(n)

	poly := make([]geometry.Point2D, n)
	for i := range poly {
		theta := float64(i) * step
		offset := r2.Vec{X: math.Cos(theta) * t.radius, Y: math.Sin(theta) * t.radius}
		centre := start.Vec()
		if r2.Dot(offset, delta) >= 0 {
			centre = end.Vec()
		}
		poly[i] = geometry.FromVec(r2.Add(centre, offset))
	}
	return poly
}
