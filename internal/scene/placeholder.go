package scene

import "labeltool/pkg/geometry"

// Placeholder marks where a label is still being computed elsewhere. It is
// not part of the label list. Replacing the scene's model detaches every
// placeholder, which tells pending work that its result is no longer wanted.
type Placeholder struct {
	scene    *Scene
	points   []geometry.Point2D
	attached bool
}

// AddPlaceholder registers a placeholder outlining the given points.
func (s *Scene) AddPlaceholder(points []geometry.Point2D) *Placeholder {
	p := &Placeholder{
		scene:    s,
		points:   append([]geometry.Point2D(nil), points...),
		attached: true,
	}
	s.placeholders = append(s.placeholders, p)
	return p
}

// Placeholders returns the attached placeholders.
func (s *Scene) Placeholders() []*Placeholder {
	return append([]*Placeholder(nil), s.placeholders...)
}

func (s *Scene) unregisterPlaceholder(p *Placeholder) {
	for i, x := range s.placeholders {
		if x == p {
			s.placeholders = append(s.placeholders[:i], s.placeholders[i+1:]...)
			return
		}
	}
	panic("scene: unregistering placeholder that is not registered")
}

// Points returns the outline points.
func (p *Placeholder) Points() []geometry.Point2D {
	return p.points
}

// SetPoints replaces the outline points.
func (p *Placeholder) SetPoints(points []geometry.Point2D) {
	p.points = append(p.points[:0:0], points...)
}

// Attached reports whether the placeholder is still live.
func (p *Placeholder) Attached() bool {
	return p.attached
}

// Scene returns the scene the placeholder was added to.
func (p *Placeholder) Scene() *Scene {
	return p.scene
}

// Detach removes the placeholder. Detaching twice is harmless.
func (p *Placeholder) Detach() {
	if !p.attached {
		return
	}
	p.attached = false
	p.scene.unregisterPlaceholder(p)
}
