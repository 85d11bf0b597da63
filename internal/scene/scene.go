// Package scene keeps the entities of one image's labels: which entities
// exist, which are top-level, which are selected, and how changes are
// announced to persistence.
package scene

import (
	"fmt"
	"math"

	"labeltool/internal/identity"
	"labeltool/internal/labels"
	"labeltool/internal/logging"
	"labeltool/pkg/geometry"
)

var infDistance = math.Inf(1)

// EventType identifies scene notifications.
type EventType int

const (
	// EventRootListChanged fires when the persisted label list or one of its
	// models changed. Suppressed while the scene is frozen.
	EventRootListChanged EventType = iota

	// EventSelectionChanged fires whenever the selection is set.
	EventSelectionChanged
)

// Listener is called when a scene event occurs.
type Listener func(s *Scene)

// Scene owns the entities of the current label header.
//
// A Scene is driven from a single UI event loop and is not safe for
// concurrent use.
type Scene struct {
	header    *labels.Header
	factories *Factories
	table     *identity.Table

	all      []Entity
	roots    []Entity
	selected []Entity
	byID     map[string]Entity

	placeholders []*Placeholder

	listeners map[EventType][]Listener

	frozen      int
	pendingSave bool
}

// New creates an empty scene. A nil factory table uses DefaultFactories.
func New(factories *Factories) *Scene {
	if factories == nil {
		factories = DefaultFactories()
	}
	return &Scene{
		header:    labels.NewHeader(""),
		factories: factories,
		table:     identity.New(""),
		byID:      make(map[string]Entity),
		listeners: make(map[EventType][]Listener),
	}
}

// On registers a listener for the given event type.
func (s *Scene) On(event EventType, listener Listener) {
	s.listeners[event] = append(s.listeners[event], listener)
}

func (s *Scene) emit(event EventType) {
	for _, l := range s.listeners[event] {
		l(s)
	}
}

func (s *Scene) rootListChanged() {
	if s.frozen > 0 {
		s.pendingSave = true
		return
	}
	s.emit(EventRootListChanged)
}

// Freeze suppresses root-list notifications until the matching Thaw.
// Freezes nest.
func (s *Scene) Freeze() {
	s.frozen++
}

// Thaw ends a Freeze. When the outermost freeze ends, one root-list
// notification is sent if any change was suppressed.
func (s *Scene) Thaw() {
	if s.frozen == 0 {
		panic("scene: Thaw without Freeze")
	}
	s.frozen--
	if s.frozen == 0 && s.pendingSave {
		s.pendingSave = false
		s.emit(EventRootListChanged)
	}
}

// Frozen reports whether notifications are currently suppressed.
func (s *Scene) Frozen() bool {
	return s.frozen > 0
}

// WithFrozen runs fn with notifications suppressed, thawing on every exit
// path including panics.
func (s *Scene) WithFrozen(fn func()) {
	s.Freeze()
	defer s.Thaw()
	fn()
}

// Header returns the current label header.
func (s *Scene) Header() *labels.Header {
	return s.header
}

// CurrentImageID returns the image id of the current header.
func (s *Scene) CurrentImageID() string {
	if s.header == nil {
		return ""
	}
	return s.header.ImageID
}

// SetTaskComplete marks a named task as complete or incomplete.
func (s *Scene) SetTaskComplete(task string, complete bool) {
	s.header.SetTaskComplete(task, complete)
}

// SetModel replaces the label header, rebuilding every entity. Identities
// are assigned by a fresh table seeded with the header's session id.
func (s *Scene) SetModel(h *labels.Header) {
	if h == nil {
		h = labels.NewHeader("")
	}

	// Swap the header first so commits from entities reacting to the
	// shutdown do not announce the outgoing label list.
	s.header = h
	for _, e := range append([]Entity(nil), s.roots...) {
		s.Shutdown(e)
	}
	for _, p := range append([]*Placeholder(nil), s.placeholders...) {
		p.Detach()
	}

	s.table = identity.New(h.SessionID)
	labels.Walk(h.Labels, func(m labels.Model) {
		s.table.Register(m)
	})
	s.byID = make(map[string]Entity)
	s.all = nil
	s.roots = nil
	s.selected = nil

	for _, m := range h.Labels {
		e := s.GetOrCreate(m)
		s.roots = append(s.roots, e)
		e.SetParent(nil)
	}

	logging.For("scene").Info("label header loaded", "image", h.ImageID, "labels", len(h.Labels))
}

// IDPrefix returns the prefix used for freshly minted object ids.
func (s *Scene) IDPrefix() string {
	return s.table.Prefix()
}

// ResolveLegacy maps legacy integer ids to their rewritten form.
func (s *Scene) ResolveLegacy(id labels.ObjectID) labels.ObjectID {
	return s.table.ResolveLegacy(id)
}

// EntityByID returns the registered entity with the given object id.
func (s *Scene) EntityByID(id string) (Entity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// Entities returns every registered entity, nested ones included.
func (s *Scene) Entities() []Entity {
	return append([]Entity(nil), s.all...)
}

// Roots returns the top-level entities in label-list order.
func (s *Scene) Roots() []Entity {
	return append([]Entity(nil), s.roots...)
}

func (s *Scene) registerEntity(e Entity) {
	s.all = append(s.all, e)
	id := s.table.Register(e.Model())
	s.byID[id] = e
}

func (s *Scene) unregisterEntity(e Entity) {
	index := indexOf(s.all, e)
	if index == -1 {
		panic("scene: unregistering entity that is not registered")
	}

	id := IDOf(e)
	for i, other := range s.all {
		if i != index {
			other.NotifyModelDestroyed(id)
		}
	}

	s.table.Unregister(e.Model())
	delete(s.byID, id)

	// Notifications may have changed s.all; look the entity up again.
	if index = indexOf(s.all, e); index != -1 {
		s.all = append(s.all[:index], s.all[index+1:]...)
	}
}

// GetOrCreate returns the entity registered for the model's id, or builds,
// registers and attaches a new one.
func (s *Scene) GetOrCreate(m labels.Model) Entity {
	if id := m.Info().ObjectID; !id.IsZero() {
		if e, ok := s.byID[id.String()]; ok {
			return e
		}
	}
	e := s.factories.New(m)
	s.registerEntity(e)
	e.Attach(s)
	return e
}

// Shutdown detaches and unregisters an entity and drops it from the
// selection. The persisted label list is left alone.
func (s *Scene) Shutdown(e Entity) {
	if i := indexOf(s.selected, e); i != -1 {
		e.Select(false)
		s.selected = append(s.selected[:i], s.selected[i+1:]...)
	}
	e.Detach()
	s.unregisterEntity(e)
}

// AddRoot makes e a top-level entity and appends its model to the label
// list.
func (s *Scene) AddRoot(e Entity) {
	s.roots = append(s.roots, e)
	e.SetParent(nil)
	s.header.Labels = append(s.header.Labels, e.Model())
	s.rootListChanged()
}

// RemoveRoot removes a top-level entity and its model from the label list.
// The entity stays registered. Removing an entity that is not a root is a
// programming error.
func (s *Scene) RemoveRoot(e Entity) {
	index := s.header.IndexOf(e.Model())
	if index == -1 {
		panic(fmt.Sprintf("scene: removing root label %q that is not present", IDOf(e)))
	}
	s.header.Labels = append(s.header.Labels[:index], s.header.Labels[index+1:]...)

	ri := indexOf(s.roots, e)
	if ri == -1 {
		panic(fmt.Sprintf("scene: removing root entity %q that is not in the root list", IDOf(e)))
	}
	s.roots = append(s.roots[:ri], s.roots[ri+1:]...)

	if si := indexOf(s.selected, e); si != -1 {
		e.Select(false)
		s.selected = append(s.selected[:si], s.selected[si+1:]...)
	}

	s.rootListChanged()
}

// IsRoot reports whether e is a top-level entity.
func (s *Scene) IsRoot(e Entity) bool {
	return indexOf(s.roots, e) != -1
}

// Destroy removes e from its container (the root list or a group) and shuts
// it down.
func (s *Scene) Destroy(e Entity) {
	if p := e.Parent(); p != nil {
		if c, ok := p.(Container); ok {
			c.RemoveChild(e)
		}
	} else if s.IsRoot(e) {
		s.RemoveRoot(e)
	}
	s.Shutdown(e)
}

// Commit announces an in-place change to a model in the label list. Models
// that are no longer listed are ignored.
func (s *Scene) Commit(m labels.Model) {
	if s.header.IndexOf(m) != -1 {
		s.rootListChanged()
	}
}

// Select changes the selection. In single mode e becomes the only selected
// entity and the selection-changed event always fires, even if e was
// already the unique selection. In multi mode e is added, or toggled when
// toggle is set, and the event fires only on change.
func (s *Scene) Select(e Entity, multi, toggle bool) {
	if multi {
		index := indexOf(s.selected, e)
		changed := false
		switch {
		case index == -1:
			s.selected = append(s.selected, e)
			e.Select(true)
			changed = true
		case toggle:
			s.selected = append(s.selected[:index], s.selected[index+1:]...)
			e.Select(false)
			changed = true
		}
		if changed {
			s.emit(EventSelectionChanged)
		}
		return
	}

	if s.SelectedEntity() != e {
		for _, sel := range s.selected {
			sel.Select(false)
		}
		s.selected = []Entity{e}
		e.Select(true)
	}
	s.emit(EventSelectionChanged)
}

// UnselectAll clears the selection and fires the selection-changed event.
func (s *Scene) UnselectAll() {
	for _, e := range s.selected {
		e.Select(false)
	}
	s.selected = nil
	s.emit(EventSelectionChanged)
}

// SelectedEntity returns the uniquely selected entity, or nil.
func (s *Scene) SelectedEntity() Entity {
	if len(s.selected) == 1 {
		return s.selected[0]
	}
	return nil
}

// Selection returns the selected entities in selection order.
func (s *Scene) Selection() []Entity {
	return append([]Entity(nil), s.selected...)
}

// DeleteSelection destroys every selected entity accepted by filter; a nil
// filter destroys all of them. The selection is cleared first.
func (s *Scene) DeleteSelection(filter func(Entity) bool) {
	doomed := append([]Entity(nil), s.selected...)
	s.UnselectAll()
	for _, e := range doomed {
		if filter == nil || filter(e) {
			s.Destroy(e)
		}
	}
}

// SetSelectionLabelClass sets the class of every selected label.
func (s *Scene) SetSelectionLabelClass(cls labels.ClassID) {
	for _, e := range s.Selection() {
		e.Model().Info().LabelClass = cls
		s.Commit(e.Model())
	}
}

// SetSelectionAnnoData sets one annotation value on every selected label.
func (s *Scene) SetSelectionAnnoData(key string, value any) {
	for _, e := range s.Selection() {
		info := e.Model().Info()
		if info.AnnoData == nil {
			info.AnnoData = map[string]any{}
		}
		info.AnnoData[key] = value
		s.Commit(e.Model())
	}
}

// CreateCompositeFromSelection adds a composite label referring to every
// selected entity. Returns nil when nothing is selected.
func (s *Scene) CreateCompositeFromSelection(cls labels.ClassID) *CompositeEntity {
	if len(s.selected) == 0 {
		return nil
	}
	ids := make([]labels.ObjectID, len(s.selected))
	for i, e := range s.selected {
		ids[i] = e.Model().Info().ObjectID
	}
	model := labels.NewComposite(ids, cls, labels.SourceManual)
	entity := s.GetOrCreate(model)
	s.AddRoot(entity)
	return entity.(*CompositeEntity)
}

// CreateGroupFromSelection moves the selected root entities into a new
// group label. An empty class defaults to the most frequent class among the
// components. Returns nil when nothing is selected.
func (s *Scene) CreateGroupFromSelection(cls labels.ClassID) *GroupEntity {
	selection := append([]Entity(nil), s.selected...)
	if len(selection) == 0 {
		return nil
	}

	components := make([]labels.Model, len(selection))
	for i, e := range selection {
		components[i] = e.Model()
	}
	if cls == "" {
		cls = labels.MostFrequentClass(components)
	}

	model := labels.NewGroup(components, cls, labels.SourceManual)
	for _, e := range selection {
		s.RemoveRoot(e)
	}
	entity := s.GetOrCreate(model)
	s.AddRoot(entity)
	return entity.(*GroupEntity)
}

// EntityAt returns the root entity nearest to p within tolerance, or nil.
func (s *Scene) EntityAt(p geometry.Point2D, tolerance float64) Entity {
	var best Entity
	bestDist := infDistance
	for _, e := range s.roots {
		if d := e.Distance(p); d <= tolerance && d < bestDist {
			best = e
			bestDist = d
		}
	}
	return best
}

func indexOf(list []Entity, e Entity) int {
	for i, x := range list {
		if x == e {
			return i
		}
	}
	return -1
}
