// Package tools defines the interactive tool contract driven by pointer and
// keyboard events, and the plumbing shared by tools.
package tools

import (
	"labeltool/internal/scene"
	"labeltool/pkg/geometry"
)

// Modifiers records the keyboard modifiers held during an event.
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Alt   bool
}

// Event carries pointer event details.
type Event struct {
	Modifiers
	Button int
}

// Key is a key press.
type Key struct {
	Modifiers
	Rune rune
}

// Tool receives user input while it is the active tool. Handlers returning
// bool report whether they consumed the event.
type Tool interface {
	Init()
	Shutdown()
	SwitchIn(pos geometry.Point2D)
	SwitchOut(pos geometry.Point2D)
	LeftClick(pos geometry.Point2D, ev Event)
	Cancel(pos geometry.Point2D) bool
	ButtonDown(pos geometry.Point2D, ev Event)
	ButtonUp(pos geometry.Point2D, ev Event)
	Move(pos geometry.Point2D)
	Drag(pos geometry.Point2D, ev Event) bool
	Wheel(pos geometry.Point2D, dx, dy float64) bool
	KeyDown(k Key) bool
	EntityMouseIn(e scene.Entity)
	EntityMouseOut(e scene.Entity)
	EntityDeleted(e scene.Entity)
}

// Base implements Tool with handlers that ignore every event. Tools embed
// it and override what they need.
type Base struct{}

func (Base) Init() {}
func (Base) Shutdown() {}
func (Base) SwitchIn(geometry.Point2D) {}
func (Base) SwitchOut(geometry.Point2D) {}
func (Base) LeftClick(geometry.Point2D, Event) {}
func (Base) Cancel(geometry.Point2D) bool { return false }
func (Base) ButtonDown(geometry.Point2D, Event) {}
func (Base) ButtonUp(geometry.Point2D, Event) {}
func (Base) Move(geometry.Point2D) {}
func (Base) Drag(geometry.Point2D, Event) bool { return false }
func (Base) Wheel(geometry.Point2D, float64, float64) bool { return false }
func (Base) KeyDown(Key) bool { return false }
func (Base) EntityMouseIn(scene.Entity) {}
func (Base) EntityMouseOut(scene.Entity) {}
func (Base) EntityDeleted(scene.Entity) {}
