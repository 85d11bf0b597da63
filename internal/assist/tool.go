package assist

import (
	"labeltool/internal/labels"
	"labeltool/internal/scene"
	"labeltool/internal/tools"
	"labeltool/pkg/geometry"
)

// Tool collects four-point gestures and submits each finished one to the
// service. The outline of the gesture in progress is kept on a scene
// placeholder, which is handed to the service with the request.
type Tool struct {
	tools.Base
	scene      *scene.Scene
	service    *Service
	host       tools.Host
	labelClass labels.ClassID

	gesture     *Gesture
	placeholder *scene.Placeholder

	cursor    geometry.Point2D
	hasCursor bool
}

// NewTool creates an assisted region tool. Requests are labelled with cls.
func NewTool(s *scene.Scene, service *Service, host tools.Host, cls labels.ClassID) *Tool {
	return &Tool{scene: s, service: service, host: host, labelClass: cls}
}

// Gesture returns the gesture in progress.
func (t *Tool) Gesture() *Gesture { return t.gesture }

// Placeholder returns the placeholder of the gesture in progress.
func (t *Tool) Placeholder() *scene.Placeholder { return t.placeholder }

// Cursor returns the snapped position of the next point, if the pointer is
// over the canvas.
func (t *Tool) Cursor() (geometry.Point2D, bool) { return t.cursor, t.hasCursor }

func (t *Tool) Init() {
	t.begin()
}

func (t *Tool) begin() {
	t.gesture = &Gesture{}
	t.placeholder = t.scene.AddPlaceholder(nil)
}

// Shutdown discards the gesture in progress. Requests already submitted
// stay open.
func (t *Tool) Shutdown() {
	if t.placeholder != nil {
		t.placeholder.Detach()
	}
	t.gesture = nil
	t.placeholder = nil
}

func (t *Tool) SwitchIn(pos geometry.Point2D) { t.updateCursor(pos) }

func (t *Tool) SwitchOut(geometry.Point2D) { t.hasCursor = false }

func (t *Tool) Move(pos geometry.Point2D) { t.updateCursor(pos) }

func (t *Tool) updateCursor(pos geometry.Point2D) {
	if t.gesture == nil {
		return
	}
	_, t.cursor, _ = t.gesture.Snap(pos)
	t.hasCursor = true
}

// Cancel removes the last point, or hands control back to the host when
// the gesture is empty.
func (t *Tool) Cancel(geometry.Point2D) bool {
	if t.gesture != nil && t.gesture.Len() > 0 {
		t.gesture.RemoveLast()
		t.placeholder.SetPoints(t.gesture.Outline())
	} else if t.host != nil {
		t.host.ResetTool()
	}
	return true
}

// LeftClick places the next point. The fourth point submits the request
// and starts a fresh gesture.
func (t *Tool) LeftClick(pos geometry.Point2D, _ tools.Event) {
	if t.gesture == nil {
		t.begin()
	}
	t.gesture.Add(pos)
	t.placeholder.SetPoints(t.gesture.Outline())
	if !t.gesture.Complete() {
		return
	}

	t.service.Submit(t.scene, t.placeholder, t.gesture.Points(), t.labelClass)
	t.begin()
}
