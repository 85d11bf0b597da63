// Package polyedit implements the polygon editing tool: a freehand sketch
// and a brush whose strokes are combined with the target label according to
// a boolean mode.
package polyedit

import (
	"fmt"

	"labeltool/internal/labels"
	"labeltool/internal/logging"
	"labeltool/internal/regions"
	"labeltool/internal/scene"
	"labeltool/internal/tools"
	"labeltool/pkg/geometry"
)

// Mode selects how a drawn shape is combined with the target label.
type Mode int

const (
	// ModeNew creates a new label from every drawn shape.
	ModeNew Mode = iota
	// ModeAdd unions the drawn shape into the target.
	ModeAdd
	// ModeSubtract removes the drawn shape from the target.
	ModeSubtract
	// ModeSplit moves the part of the target under the drawn shape into a
	// new label.
	ModeSplit
)

func (m Mode) String() string {
	switch m {
	case ModeNew:
		return "new"
	case ModeAdd:
		return "add"
	case ModeSubtract:
		return "subtract"
	case ModeSplit:
		return "split"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Next returns the mode reached by the cycle key. Split is never entered
// by cycling and leads back to new.
func (m Mode) Next() Mode {
	switch m {
	case ModeNew:
		return ModeAdd
	case ModeAdd:
		return ModeSubtract
	case ModeSubtract, ModeSplit:
		return ModeNew
	default:
		panic(fmt.Sprintf("polyedit: unknown boolean mode %d", int(m)))
	}
}

// Key bindings handled by the edit tool.
const (
	KeyCycleMode    = '/'
	KeyToggleDrawer = ','
)

// Settings tune the brush.
type Settings struct {
	BrushRadius   float64
	BrushSegments int
	WheelRate     float64
	KeyRate       float64
	MinRadius     float64
}

// DefaultSettings returns the stock brush settings.
func DefaultSettings() Settings {
	return Settings{
		BrushRadius:   10,
		BrushSegments: 12,
		WheelRate:     0.025,
		KeyRate:       2,
		MinRadius:     1,
	}
}

// EditTool edits one polygon label, or creates new ones, by forwarding
// input to the sketch or brush tool and combining what they draw with the
// target according to the boolean mode.
type EditTool struct {
	*tools.Proxy

	scene    *scene.Scene
	host     tools.Host
	settings Settings

	entity     *scene.PolygonEntity
	mode       Mode
	labelClass labels.ClassID

	// speculative is the label created while a sketch is in progress.
	// The scene stays frozen for as long as it is set.
	speculative *scene.PolygonEntity

	sketch *SketchTool
	brush  *BrushTool
}

// NewEditTool creates an edit tool targeting entity, which may be nil.
// The sketch tool is active initially.
func NewEditTool(s *scene.Scene, host tools.Host, entity *scene.PolygonEntity, settings Settings) *EditTool {
	t := &EditTool{
		scene:    s,
		host:     host,
		settings: settings,
		entity:   entity,
		mode:     ModeNew,
	}
	t.sketch = newSketchTool(t)
	t.brush = newBrushTool(t, settings)
	t.Proxy = tools.NewProxy(t.sketch)
	return t
}

// Entity returns the target label, or nil.
func (t *EditTool) Entity() *scene.PolygonEntity {
	t.dropDetachedTarget()
	return t.entity
}

// Mode returns the current boolean mode.
func (t *EditTool) Mode() Mode { return t.mode }

// SetMode changes the boolean mode.
func (t *EditTool) SetMode(m Mode) {
	t.mode = m
}

// SetLabelClass sets the class given to labels the tool creates.
func (t *EditTool) SetLabelClass(cls labels.ClassID) {
	t.labelClass = cls
}

// Sketch returns the freehand sketch sub-tool.
func (t *EditTool) Sketch() *SketchTool { return t.sketch }

// Brush returns the brush sub-tool.
func (t *EditTool) Brush() *BrushTool { return t.brush }

// UseSketch makes the sketch sub-tool current.
func (t *EditTool) UseSketch() { t.SetUnderlying(t.sketch) }

// UseBrush makes the brush sub-tool current.
func (t *EditTool) UseBrush() { t.SetUnderlying(t.brush) }

func (t *EditTool) Shutdown() {
	t.Proxy.Shutdown()
	t.abandonSpeculative()
}

// Cancel lets the current sub-tool back out its gesture first. With no
// gesture in progress, the target is committed and released; with no target
// the selection is cleared and control returns to the host's default tool.
func (t *EditTool) Cancel(pos geometry.Point2D) bool {
	if t.Proxy.Cancel(pos) {
		return true
	}

	t.dropDetachedTarget()
	if t.entity != nil {
		t.scene.Commit(t.entity.Model())
		t.entity = nil
	} else {
		t.scene.UnselectAll()
		if t.host != nil {
			t.host.ResetTool()
		}
	}
	return true
}

func (t *EditTool) KeyDown(k tools.Key) bool {
	if t.Proxy.KeyDown(k) {
		return true
	}
	switch k.Rune {
	case KeyCycleMode:
		t.mode = t.mode.Next()
		return true
	case KeyToggleDrawer:
		if t.Underlying() == tools.Tool(t.sketch) {
			t.UseBrush()
		} else {
			t.UseSketch()
		}
		return true
	}
	return false
}

func (t *EditTool) EntityDeleted(e scene.Entity) {
	t.Proxy.EntityDeleted(e)
	if t.entity != nil && scene.Entity(t.entity) == e {
		t.entity = nil
	}
}

// dropDetachedTarget forgets a target that has been destroyed behind the
// tool's back.
func (t *EditTool) dropDetachedTarget() {
	if t.entity != nil && !t.entity.Attached() {
		t.entity = nil
	}
}

// createsOnDraw reports whether the next drawn shape becomes a new label.
func (t *EditTool) createsOnDraw() bool {
	t.dropDetachedTarget()
	if t.entity != nil && t.mode != ModeNew {
		return false
	}
	return t.mode == ModeNew || t.mode == ModeAdd
}

// beginSpeculative creates an empty label to preview a sketch that will
// become a new label. Notifications stay suppressed until it is adopted or
// abandoned.
func (t *EditTool) beginSpeculative() {
	if t.speculative != nil || !t.createsOnDraw() {
		return
	}
	t.scene.Freeze()
	model := labels.NewPolygon(nil, t.labelClass, labels.SourceManual)
	t.speculative = t.scene.GetOrCreate(model).(*scene.PolygonEntity)
	t.scene.AddRoot(t.speculative)
}

func (t *EditTool) previewSpeculative(vertices []geometry.Point2D) {
	if t.speculative == nil {
		return
	}
	if len(vertices) < 3 {
		t.speculative.SetRegions(nil)
		return
	}
	t.speculative.SetRegions([][]geometry.Point2D{append([]geometry.Point2D(nil), vertices...)})
}

func (t *EditTool) abandonSpeculative() {
	if t.speculative == nil {
		return
	}
	e := t.speculative
	t.speculative = nil
	if e.Attached() {
		t.scene.Destroy(e)
	}
	t.scene.Thaw()
}

// createEntity makes drawn the regions of a new label, adopting the
// speculative label when there is one, and selects it as the new target.
func (t *EditTool) createEntity(drawn [][]geometry.Point2D) {
	if e := t.speculative; e != nil && e.Attached() {
		t.speculative = nil
		e.SetRegions(drawn)
		e.Polygon().Source = labels.SourceManual
		t.entity = e
		t.scene.Select(e, false, false)
		t.scene.Thaw()
		return
	}
	t.abandonSpeculative()

	model := labels.NewPolygon(drawn, t.labelClass, labels.SourceManual)
	e := t.scene.GetOrCreate(model).(*scene.PolygonEntity)
	t.entity = e
	t.scene.AddRoot(e)
	t.scene.Select(e, false, false)
}

// NotifyDraw combines a drawn region set with the target according to the
// current mode. It is called once per completed gesture.
func (t *EditTool) NotifyDraw(drawn [][]geometry.Point2D) {
	log := logging.For("polyedit")
	t.dropDetachedTarget()

	if t.entity == nil || t.mode == ModeNew {
		switch t.mode {
		case ModeNew, ModeAdd:
			t.createEntity(drawn)
		case ModeSubtract, ModeSplit:
			t.abandonSpeculative()
		default:
			panic(fmt.Sprintf("polyedit: unknown boolean mode %d", int(t.mode)))
		}
		return
	}
	t.abandonSpeculative()

	existing := t.entity.Regions()
	switch t.mode {
	case ModeAdd:
		merged := regions.Union(existing, drawn)
		if len(merged) == 0 {
			log.Warn("union produced no regions", "label", scene.IDOf(t.entity))
			return
		}
		t.replaceRegions(merged)

	case ModeSubtract:
		rest := regions.Difference(existing, drawn)
		if len(rest) == 0 {
			t.scene.Destroy(t.entity)
			t.entity = nil
			return
		}
		t.replaceRegions(rest)

	case ModeSplit:
		remaining := regions.Difference(existing, drawn)
		splitOff := regions.Intersection(existing, drawn)
		if len(remaining) == 0 || len(splitOff) == 0 {
			log.Debug("split left one side empty", "label", scene.IDOf(t.entity))
			return
		}
		t.entity.SetRegions(remaining)
		t.entity.Polygon().Source = labels.SourceManual

		// Adding the split-off label announces both changes.
		model := labels.NewPolygon(splitOff, t.entity.Model().Info().LabelClass, labels.SourceManual)
		t.scene.AddRoot(t.scene.GetOrCreate(model))

	default:
		panic(fmt.Sprintf("polyedit: unknown boolean mode %d", int(t.mode)))
	}
}

func (t *EditTool) replaceRegions(r [][]geometry.Point2D) {
	t.entity.SetRegions(r)
	t.entity.Polygon().Source = labels.SourceManual
	t.scene.Commit(t.entity.Model())
}
