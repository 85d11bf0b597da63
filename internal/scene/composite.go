package scene

import (
	"labeltool/internal/labels"
	"labeltool/pkg/geometry"
)

// CompositeEntity refers to other root entities by object id.
type CompositeEntity struct {
	BaseEntity
	model *labels.Composite
}

func NewCompositeEntity(m *labels.Composite) *CompositeEntity {
	return &CompositeEntity{model: m}
}

func (e *CompositeEntity) Model() labels.Model { return e.model }

// Attach rewrites legacy component ids to their current form.
func (e *CompositeEntity) Attach(h Host) {
	e.BaseEntity.Attach(h)
	for i, id := range e.model.Components {
		e.model.Components[i] = h.ResolveLegacy(id)
	}
}

// Components returns the entities the composite refers to. Ids that do not
// resolve are skipped.
func (e *CompositeEntity) Components() []Entity {
	if e.host == nil {
		return nil
	}
	var out []Entity
	for _, id := range e.model.Components {
		if c, ok := e.host.EntityByID(id.String()); ok {
			out = append(out, c)
		}
	}
	return out
}

// NotifyModelDestroyed drops the destroyed component and commits.
func (e *CompositeEntity) NotifyModelDestroyed(id string) {
	kept := e.model.Components[:0]
	removed := false
	for _, c := range e.model.Components {
		if c.String() == id {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	e.model.Components = kept
	if removed && e.host != nil {
		e.host.Commit(e.model)
	}
}

func (e *CompositeEntity) Distance(p geometry.Point2D) float64 {
	return minDistance(e.Components(), p)
}

func (e *CompositeEntity) Bounds() (geometry.Rect, bool) {
	return unionBounds(e.Components())
}

func (e *CompositeEntity) Centroid() geometry.Point2D {
	return meanCentroid(e.Components())
}

// GroupEntity owns the entities of its component models.
type GroupEntity struct {
	BaseEntity
	model    *labels.Group
	children []Entity
}

func NewGroupEntity(m *labels.Group) *GroupEntity {
	return &GroupEntity{model: m}
}

func (e *GroupEntity) Model() labels.Model { return e.model }

// Attach creates or adopts the entities of the component models.
func (e *GroupEntity) Attach(h Host) {
	e.BaseEntity.Attach(h)
	e.children = e.children[:0]
	for _, m := range e.model.ComponentModels {
		child := h.GetOrCreate(m)
		child.SetParent(e)
		e.children = append(e.children, child)
	}
}

// Detach shuts down the component entities.
func (e *GroupEntity) Detach() {
	children := append([]Entity(nil), e.children...)
	e.children = nil
	for _, c := range children {
		c.SetParent(nil)
		if e.host != nil {
			e.host.Shutdown(c)
		}
	}
	e.BaseEntity.Detach()
}

func (e *GroupEntity) Children() []Entity {
	return append([]Entity(nil), e.children...)
}

// RemoveChild removes a component from the group model and commits.
func (e *GroupEntity) RemoveChild(child Entity) {
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			break
		}
	}
	model := child.Model()
	for i, m := range e.model.ComponentModels {
		if m == model {
			e.model.ComponentModels = append(e.model.ComponentModels[:i], e.model.ComponentModels[i+1:]...)
			break
		}
	}
	child.SetParent(nil)
	if e.host != nil {
		e.host.Commit(e.model)
	}
}

func (e *GroupEntity) Distance(p geometry.Point2D) float64 {
	return minDistance(e.children, p)
}

func (e *GroupEntity) Bounds() (geometry.Rect, bool) {
	return unionBounds(e.children)
}

func (e *GroupEntity) Centroid() geometry.Point2D {
	return meanCentroid(e.children)
}

func minDistance(entities []Entity, p geometry.Point2D) float64 {
	best := infDistance
	for _, c := range entities {
		if d := c.Distance(p); d < best {
			best = d
		}
	}
	return best
}

func unionBounds(entities []Entity) (geometry.Rect, bool) {
	var box geometry.Rect
	found := false
	for _, c := range entities {
		b, ok := c.Bounds()
		if !ok {
			continue
		}
		if found {
			box = box.Union(b)
		} else {
			box, found = b, true
		}
	}
	return box, found
}

func meanCentroid(entities []Entity) geometry.Point2D {
	centres := make([]geometry.Point2D, len(entities))
	for i, c := range entities {
		centres[i] = c.Centroid()
	}
	return geometry.Centroid(centres)
}
