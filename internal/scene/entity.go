package scene

import (
	"labeltool/internal/labels"
	"labeltool/pkg/geometry"
)

// Host is the view of the scene given to entities. Entities hold it as a
// callback interface and never own the scene.
type Host interface {
	// GetOrCreate returns the entity for a model, creating it if needed.
	GetOrCreate(m labels.Model) Entity

	// Shutdown detaches and unregisters an entity without touching the
	// persisted label list.
	Shutdown(e Entity)

	// Commit announces an in-place change to a model.
	Commit(m labels.Model)

	// EntityByID looks up a registered entity.
	EntityByID(id string) (Entity, bool)

	// ResolveLegacy maps legacy integer ids to their rewritten form.
	ResolveLegacy(id labels.ObjectID) labels.ObjectID
}

// Entity is the runtime wrapper around a label model.
type Entity interface {
	// Model returns the wrapped label model.
	Model() labels.Model

	// Attach realizes the entity once it has been registered with h.
	Attach(h Host)

	// Detach releases anything created by Attach.
	Detach()

	// Parent returns the containing entity, or nil for root entities.
	Parent() Entity
	SetParent(p Entity)

	Select(selected bool)
	Selected() bool
	SetHover(hover bool)
	Hovered() bool

	// Distance returns 0 for points inside the shape, otherwise the
	// distance to its outline.
	Distance(p geometry.Point2D) float64

	// Bounds returns the bounding box; false if the shape is empty.
	Bounds() (geometry.Rect, bool)

	// Centroid returns the handle position of the shape.
	Centroid() geometry.Point2D

	// Update drops cached geometry after the model changed in place.
	Update()

	// NotifyModelDestroyed is called when another entity is unregistered.
	NotifyModelDestroyed(id string)
}

// Container is implemented by entities that own child entities.
type Container interface {
	Entity
	Children() []Entity
	RemoveChild(child Entity)
}

// BaseEntity provides the bookkeeping shared by all entity kinds.
type BaseEntity struct {
	host     Host
	parent   Entity
	selected bool
	hovered  bool
	attached bool
}

func (b *BaseEntity) Attach(h Host) {
	b.host = h
	b.attached = true
}

func (b *BaseEntity) Detach() {
	b.attached = false
}

// Host returns the host the entity was attached to.
func (b *BaseEntity) Host() Host { return b.host }

// Attached reports whether the entity is currently attached.
func (b *BaseEntity) Attached() bool { return b.attached }

func (b *BaseEntity) Parent() Entity { return b.parent }
func (b *BaseEntity) SetParent(p Entity) { b.parent = p }
func (b *BaseEntity) Select(selected bool) { b.selected = selected }
func (b *BaseEntity) Selected() bool { return b.selected }
func (b *BaseEntity) SetHover(hover bool) { b.hovered = hover }
func (b *BaseEntity) Hovered() bool { return b.hovered }
func (b *BaseEntity) Update() {}
func (b *BaseEntity) NotifyModelDestroyed(string) {}

// IDOf returns the object id of an entity's model as a string.
func IDOf(e Entity) string {
	return e.Model().Info().ObjectID.String()
}
