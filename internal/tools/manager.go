package tools

import (
	"labeltool/internal/scene"
	"labeltool/pkg/geometry"
)

// Host lets a tool hand control back when it is done.
type Host interface {
	// ResetTool makes the default tool current.
	ResetTool()
}

// Manager owns the current tool and routes input to it.
type Manager struct {
	*Proxy
	defaultTool func() Tool
}

// NewManager creates a manager whose default tool is built by newDefault.
// The default tool is made current immediately.
func NewManager(newDefault func() Tool) *Manager {
	m := &Manager{Proxy: NewProxy(nil), defaultTool: newDefault}
	m.SetUnderlying(newDefault())
	return m
}

// SetTool makes t the current tool.
func (m *Manager) SetTool(t Tool) {
	m.SetUnderlying(t)
}

// Current returns the current tool.
func (m *Manager) Current() Tool {
	return m.Underlying()
}

// ResetTool makes a fresh default tool current.
func (m *Manager) ResetTool() {
	m.SetUnderlying(m.defaultTool())
}

// SelectTool selects the entity under the pointer on click.
type SelectTool struct {
	Base
	scene     *scene.Scene
	tolerance float64
}

// NewSelectTool creates a selection tool hitting entities within tolerance
// pixels of the pointer.
func NewSelectTool(s *scene.Scene, tolerance float64) *SelectTool {
	return &SelectTool{scene: s, tolerance: tolerance}
}

// LeftClick selects the entity under the pointer. Shift toggles it in a
// multi-selection; clicking empty space without shift clears the selection.
func (t *SelectTool) LeftClick(pos geometry.Point2D, ev Event) {
	e := t.scene.EntityAt(pos, t.tolerance)
	if e != nil {
		t.scene.Select(e, ev.Shift, ev.Shift)
		return
	}
	if !ev.Shift {
		t.scene.UnselectAll()
	}
}

// Move updates hover state.
func (t *SelectTool) Move(pos geometry.Point2D) {
	hit := t.scene.EntityAt(pos, t.tolerance)
	for _, e := range t.scene.Roots() {
		e.SetHover(e == hit)
	}
}
