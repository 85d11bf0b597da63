package polyedit

import (
	"labeltool/internal/tools"
	"labeltool/pkg/geometry"
)

// SketchTool draws one polygon vertex by vertex. While the pointer is over
// the canvas the last vertex follows it; cancelling drops that floating
// vertex and completes the polygon.
type SketchTool struct {
	tools.Base
	edit     *EditTool
	vertices []geometry.Point2D
}

func newSketchTool(edit *EditTool) *SketchTool {
	return &SketchTool{edit: edit}
}

// Vertices returns the vertices drawn so far, the floating one included.
func (t *SketchTool) Vertices() []geometry.Point2D {
	return append([]geometry.Point2D(nil), t.vertices...)
}

// Shutdown discards the sketch in progress.
func (t *SketchTool) Shutdown() {
	t.vertices = nil
	t.edit.abandonSpeculative()
}

func (t *SketchTool) SwitchIn(pos geometry.Point2D) {
	t.addPoint(pos)
}

func (t *SketchTool) SwitchOut(geometry.Point2D) {
	t.removeLastPoint()
}

// Cancel drops the floating vertex. When at least three vertices remain
// they are handed to the edit tool as a finished polygon; a shorter sketch
// is discarded along with any label created to preview it. A new sketch
// starts at pos.
func (t *SketchTool) Cancel(pos geometry.Point2D) bool {
	handled := false
	if len(t.vertices) > 0 {
		t.removeLastPoint()
		if len(t.vertices) >= 3 {
			t.edit.NotifyDraw([][]geometry.Point2D{append([]geometry.Point2D(nil), t.vertices...)})
		}
		handled = len(t.vertices) > 0
	}
	t.edit.abandonSpeculative()

	t.vertices = []geometry.Point2D{pos}
	return handled
}

func (t *SketchTool) LeftClick(pos geometry.Point2D, _ tools.Event) {
	t.edit.beginSpeculative()
	t.addPoint(pos)
}

func (t *SketchTool) Move(pos geometry.Point2D) {
	t.updateLastPoint(pos)
}

// Drag adds a vertex when shift is held, so outlines can be traced.
func (t *SketchTool) Drag(pos geometry.Point2D, ev tools.Event) bool {
	if ev.Shift {
		t.edit.beginSpeculative()
		t.addPoint(pos)
		return true
	}
	return false
}

func (t *SketchTool) addPoint(pos geometry.Point2D) {
	t.vertices = append(t.vertices, pos)
	t.edit.previewSpeculative(t.vertices)
}

func (t *SketchTool) updateLastPoint(pos geometry.Point2D) {
	if len(t.vertices) == 0 {
		t.addPoint(pos)
		return
	}
	t.vertices[len(t.vertices)-1] = pos
	t.edit.previewSpeculative(t.vertices)
}

func (t *SketchTool) removeLastPoint() {
	if len(t.vertices) > 0 {
		t.vertices = t.vertices[:len(t.vertices)-1]
		t.edit.previewSpeculative(t.vertices)
	}
}
