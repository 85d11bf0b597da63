package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labeltool/internal/labels"
	"labeltool/pkg/geometry"
)

type eventCounter struct {
	rootChanges      int
	selectionChanges int
}

func newTestScene(t *testing.T) (*Scene, *eventCounter) {
	t.Helper()
	s := New(nil)
	s.SetModel(&labels.Header{ImageID: "img-1", SessionID: "sess", Labels: []labels.Model{}})
	c := &eventCounter{}
	s.On(EventRootListChanged, func(*Scene) { c.rootChanges++ })
	s.On(EventSelectionChanged, func(*Scene) { c.selectionChanges++ })
	return s, c
}

func square(x, y, size float64) []geometry.Point2D {
	return []geometry.Point2D{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}}
}

func addPolygon(s *Scene, cls labels.ClassID, rs ...[]geometry.Point2D) *PolygonEntity {
	e := s.GetOrCreate(labels.NewPolygon(rs, cls, labels.SourceManual)).(*PolygonEntity)
	s.AddRoot(e)
	return e
}

func TestAddRootAssignsIDAndNotifies(t *testing.T) {
	s, c := newTestScene(t)

	a := addPolygon(s, "tree", square(0, 0, 10))
	b := addPolygon(s, "tree", square(20, 0, 10))

	assert.Equal(t, "sess__1", IDOf(a))
	assert.Equal(t, "sess__2", IDOf(b))
	assert.Equal(t, 2, c.rootChanges)
	assert.Equal(t, []labels.Model{a.Model(), b.Model()}, s.Header().Labels)
	assert.Equal(t, []Entity{a, b}, s.Roots())
	assert.Len(t, s.Entities(), 2)

	got, ok := s.EntityByID("sess__2")
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestGetOrCreateDoesNotDuplicate(t *testing.T) {
	s, _ := newTestScene(t)
	m := labels.NewPoint(geometry.NewPoint2D(1, 1), "", labels.SourceManual)

	first := s.GetOrCreate(m)
	second := s.GetOrCreate(m)
	assert.Same(t, first, second)
	assert.Len(t, s.Entities(), 1)
}

func TestUnknownLabelTypePanics(t *testing.T) {
	s := New(NewFactories())
	assert.Panics(t, func() {
		s.GetOrCreate(labels.NewPoint(geometry.Point2D{}, "", labels.SourceManual))
	})
}

func TestCustomFactory(t *testing.T) {
	f := DefaultFactories()
	called := 0
	f.Register(labels.TypePoint, func(m labels.Model) Entity {
		called++
		return NewPointEntity(m.(*labels.Point))
	})
	s := New(f)
	s.GetOrCreate(labels.NewPoint(geometry.Point2D{}, "", labels.SourceManual))
	assert.Equal(t, 1, called)
	assert.True(t, f.Has(labels.TypeGroup))
}

func TestSelectSingleAlwaysNotifies(t *testing.T) {
	s, c := newTestScene(t)
	a := addPolygon(s, "", square(0, 0, 10))

	s.Select(a, false, false)
	s.Select(a, false, false)

	assert.Equal(t, 2, c.selectionChanges)
	assert.Equal(t, Entity(a), s.SelectedEntity())
	assert.True(t, a.Selected())
}

func TestSelectSingleReplacesSelection(t *testing.T) {
	s, _ := newTestScene(t)
	a := addPolygon(s, "", square(0, 0, 10))
	b := addPolygon(s, "", square(20, 0, 10))

	s.Select(a, true, false)
	s.Select(b, true, false)
	require.Len(t, s.Selection(), 2)
	assert.Nil(t, s.SelectedEntity())

	s.Select(b, false, false)
	assert.Equal(t, []Entity{b}, s.Selection())
	assert.False(t, a.Selected())
}

func TestSelectMulti(t *testing.T) {
	s, c := newTestScene(t)
	a := addPolygon(s, "", square(0, 0, 10))
	b := addPolygon(s, "", square(20, 0, 10))

	s.Select(a, true, false)
	s.Select(b, true, false)
	assert.Equal(t, 2, c.selectionChanges)

	// Adding an already selected entity without toggle changes nothing.
	s.Select(a, true, false)
	assert.Equal(t, 2, c.selectionChanges)

	// Toggle removes it.
	s.Select(a, true, true)
	assert.Equal(t, 3, c.selectionChanges)
	assert.Equal(t, []Entity{b}, s.Selection())
	assert.False(t, a.Selected())

	// Toggle adds it back.
	s.Select(a, true, true)
	assert.Equal(t, []Entity{b, a}, s.Selection())
}

func TestDeleteSelection(t *testing.T) {
	s, c := newTestScene(t)
	a := addPolygon(s, "keep", square(0, 0, 10))
	b := addPolygon(s, "drop", square(20, 0, 10))
	s.Select(a, true, false)
	s.Select(b, true, false)
	c.selectionChanges = 0

	s.DeleteSelection(func(e Entity) bool {
		return e.Model().Info().LabelClass == "drop"
	})

	assert.Empty(t, s.Selection())
	assert.Equal(t, 1, c.selectionChanges)
	assert.Equal(t, []Entity{a}, s.Roots())
	assert.Equal(t, []labels.Model{a.Model()}, s.Header().Labels)
	_, ok := s.EntityByID(IDOf(b))
	assert.False(t, ok)

	s.Select(a, false, false)
	s.DeleteSelection(nil)
	assert.Empty(t, s.Roots())
	assert.Empty(t, s.Entities())
}

func TestRemoveRootNotPresentPanics(t *testing.T) {
	s, _ := newTestScene(t)
	e := s.GetOrCreate(labels.NewPoint(geometry.Point2D{}, "", labels.SourceManual))
	assert.Panics(t, func() { s.RemoveRoot(e) })
}

func TestShutdownUnregisteredPanics(t *testing.T) {
	s, _ := newTestScene(t)
	stray := NewPointEntity(labels.NewPoint(geometry.Point2D{}, "", labels.SourceManual))
	assert.Panics(t, func() { s.Shutdown(stray) })
}

func TestCommitOnlyForListedModels(t *testing.T) {
	s, c := newTestScene(t)
	a := addPolygon(s, "", square(0, 0, 10))
	c.rootChanges = 0

	s.Commit(a.Model())
	assert.Equal(t, 1, c.rootChanges)

	s.Commit(labels.NewPoint(geometry.Point2D{}, "", labels.SourceManual))
	assert.Equal(t, 1, c.rootChanges)
}

func TestFreezeThaw(t *testing.T) {
	s, c := newTestScene(t)

	s.Freeze()
	s.Freeze()
	a := addPolygon(s, "", square(0, 0, 10))
	s.Commit(a.Model())
	assert.Equal(t, 0, c.rootChanges)
	assert.True(t, s.Frozen())

	s.Thaw()
	assert.Equal(t, 0, c.rootChanges, "inner thaw does not flush")
	s.Thaw()
	assert.Equal(t, 1, c.rootChanges, "one notification for all suppressed changes")
	assert.False(t, s.Frozen())

	s.Freeze()
	s.Thaw()
	assert.Equal(t, 1, c.rootChanges, "nothing suppressed, nothing sent")

	assert.Panics(t, func() { s.Thaw() })
}

func TestWithFrozenThawsOnPanic(t *testing.T) {
	s, _ := newTestScene(t)
	assert.Panics(t, func() {
		s.WithFrozen(func() { panic("boom") })
	})
	assert.False(t, s.Frozen())
}

func TestSetModelRegistersLegacyIDs(t *testing.T) {
	s := New(nil)

	poly := labels.NewPolygon([][]geometry.Point2D{square(0, 0, 10)}, "a", labels.SourceManual)
	poly.ObjectID = labels.NumericID(3)
	point := labels.NewPoint(geometry.NewPoint2D(50, 50), "b", labels.SourceManual)
	comp := labels.NewComposite([]labels.ObjectID{labels.NumericID(3)}, "", labels.SourceManual)
	fresh := labels.NewPoint(geometry.NewPoint2D(1, 1), "", labels.SourceManual)

	s.SetModel(&labels.Header{
		ImageID:   "img",
		SessionID: "sess",
		Labels:    []labels.Model{poly, point, comp, fresh},
	})

	require.Len(t, s.Roots(), 4)
	newID := poly.ObjectID.String()
	assert.NotEqual(t, "3", newID)
	assert.Equal(t, "sess__1", point.ObjectID.String())

	// The composite's legacy reference was rewritten to the new id.
	require.Len(t, comp.Components, 1)
	assert.Equal(t, newID, comp.Components[0].String())

	ce, ok := s.EntityByID(comp.ObjectID.String())
	require.True(t, ok)
	components := ce.(*CompositeEntity).Components()
	require.Len(t, components, 1)
	assert.Same(t, s.Roots()[0], components[0])
}

func TestSetModelDetachesPlaceholdersAndOldEntities(t *testing.T) {
	s, c := newTestScene(t)
	old := addPolygon(s, "", square(0, 0, 10))
	p := s.AddPlaceholder(square(0, 0, 1))
	require.True(t, p.Attached())
	c.rootChanges = 0

	s.SetModel(labels.NewHeader("img-2"))

	assert.False(t, p.Attached())
	assert.Empty(t, s.Placeholders())
	assert.Empty(t, s.Entities())
	assert.Equal(t, "img-2", s.CurrentImageID())
	assert.Equal(t, 0, c.rootChanges)
	_, ok := s.EntityByID(IDOf(old))
	assert.False(t, ok)

	// Detaching twice is harmless.
	p.Detach()
}

func TestCompositeDropsDestroyedComponent(t *testing.T) {
	s, c := newTestScene(t)
	a := addPolygon(s, "", square(0, 0, 10))
	b := addPolygon(s, "", square(20, 0, 10))
	s.Select(a, true, false)
	s.Select(b, true, false)

	comp := s.CreateCompositeFromSelection("pair")
	require.NotNil(t, comp)
	require.Len(t, comp.Components(), 2)
	assert.Equal(t, labels.ClassID("pair"), comp.Model().Info().LabelClass)

	c.rootChanges = 0
	s.Destroy(a)

	model := comp.Model().(*labels.Composite)
	require.Len(t, model.Components, 1)
	assert.Equal(t, IDOf(b), model.Components[0].String())
	assert.GreaterOrEqual(t, c.rootChanges, 2, "removal and composite commit both notify")

	assert.InDelta(t, 25.0, comp.Centroid().X, 1e-9)
}

func TestCreateCompositeEmptySelection(t *testing.T) {
	s, _ := newTestScene(t)
	assert.Nil(t, s.CreateCompositeFromSelection(""))
	assert.Nil(t, s.CreateGroupFromSelection(""))
}

func TestCreateGroupFromSelection(t *testing.T) {
	s, _ := newTestScene(t)
	a := addPolygon(s, "cat", square(0, 0, 10))
	b := addPolygon(s, "dog", square(20, 0, 10))
	d := addPolygon(s, "dog", square(40, 0, 10))
	other := addPolygon(s, "cat", square(60, 0, 10))
	for _, e := range []Entity{a, b, d} {
		s.Select(e, true, false)
	}

	group := s.CreateGroupFromSelection("")
	require.NotNil(t, group)
	assert.Equal(t, labels.ClassID("dog"), group.Model().Info().LabelClass)
	assert.Equal(t, []Entity{other, group}, s.Roots())
	assert.Equal(t, []Entity{a, b, d}, group.Children())
	assert.Same(t, group, a.Parent())
	assert.Len(t, s.Header().Labels, 2)
	assert.Empty(t, s.Selection())

	// Entities were adopted, not recreated.
	assert.Len(t, s.Entities(), 5)

	bounds, ok := group.Bounds()
	require.True(t, ok)
	assert.Equal(t, geometry.NewRect(0, 0, 50, 10), bounds)
	assert.Equal(t, 0.0, group.Distance(geometry.NewPoint2D(25, 5)))

	// Destroying a child removes it from the group model.
	s.Destroy(b)
	assert.Len(t, group.Model().(*labels.Group).ComponentModels, 2)
	assert.Len(t, group.Children(), 2)

	// Destroying the group shuts down its children.
	s.Destroy(group)
	assert.Equal(t, []Entity{other}, s.Entities())
}

func TestSetSelectionLabelClassAndAnnoData(t *testing.T) {
	s, c := newTestScene(t)
	a := addPolygon(s, "old", square(0, 0, 10))
	b := addPolygon(s, "old", square(20, 0, 10))
	s.Select(a, true, false)
	s.Select(b, true, false)
	c.rootChanges = 0

	s.SetSelectionLabelClass("new")
	assert.Equal(t, labels.ClassID("new"), a.Model().Info().LabelClass)
	assert.Equal(t, labels.ClassID("new"), b.Model().Info().LabelClass)
	assert.Equal(t, 2, c.rootChanges)

	s.SetSelectionAnnoData("occluded", true)
	assert.Equal(t, true, a.Model().Info().AnnoData["occluded"])
}

func TestEntityAt(t *testing.T) {
	s, _ := newTestScene(t)
	a := addPolygon(s, "", square(0, 0, 10))
	p := s.GetOrCreate(labels.NewPoint(geometry.NewPoint2D(30, 5), "", labels.SourceManual))
	s.AddRoot(p)

	assert.Equal(t, Entity(a), s.EntityAt(geometry.NewPoint2D(5, 5), 3))
	assert.Equal(t, p, s.EntityAt(geometry.NewPoint2D(31, 5), 3))
	assert.Nil(t, s.EntityAt(geometry.NewPoint2D(20, 5), 3))
}

func TestSetTaskComplete(t *testing.T) {
	s, _ := newTestScene(t)
	s.SetTaskComplete("done", true)
	assert.Equal(t, []string{"done"}, s.Header().CompletedTasks)
}

func TestPolygonEntityCache(t *testing.T) {
	e := NewPolygonEntity(labels.NewPolygon([][]geometry.Point2D{square(0, 0, 10)}, "", labels.SourceManual))
	assert.Equal(t, geometry.NewPoint2D(5, 5), e.Centroid())

	e.SetRegions([][]geometry.Point2D{square(10, 10, 2)})
	assert.Equal(t, geometry.NewPoint2D(11, 11), e.Centroid())
	b, ok := e.Bounds()
	require.True(t, ok)
	assert.Equal(t, geometry.NewRect(10, 10, 2, 2), b)

	e.SetRegions(nil)
	_, ok = e.Bounds()
	assert.False(t, ok)
	assert.NotNil(t, e.Regions())
}

func TestEllipseEntity(t *testing.T) {
	m := labels.NewOrientedEllipse(geometry.NewPoint2D(10, 10), 6, 2, math.Pi/2, "", labels.SourceManual)
	e := NewEllipseEntity(m)

	// Rotated a quarter turn, the long axis is vertical.
	assert.True(t, e.Contains(geometry.NewPoint2D(10, 15)))
	assert.False(t, e.Contains(geometry.NewPoint2D(15, 10)))
	assert.Equal(t, 0.0, e.Distance(geometry.NewPoint2D(10, 10)))
	assert.InDelta(t, 3.0, e.Distance(geometry.NewPoint2D(15, 10)), 0.05)

	b, ok := e.Bounds()
	require.True(t, ok)
	assert.InDelta(t, 8.0, b.X, 1e-9)
	assert.InDelta(t, 4.0, b.Y, 1e-9)
	assert.InDelta(t, 4.0, b.Width, 1e-9)
	assert.InDelta(t, 12.0, b.Height, 1e-9)

	flat := NewEllipseEntity(labels.NewOrientedEllipse(geometry.Point2D{}, 0, 0, 0, "", labels.SourceManual))
	assert.False(t, flat.Contains(geometry.Point2D{}))
}

func TestThinEllipseStillContains(t *testing.T) {
	// The frame solve reports a poor condition number but still answers.
	thin := NewEllipseEntity(labels.NewOrientedEllipse(geometry.Point2D{}, 1, 1e-17, 0, "", labels.SourceManual))
	assert.True(t, thin.Contains(geometry.Point2D{}))
	assert.True(t, thin.Contains(geometry.NewPoint2D(0.5, 0)))
	assert.False(t, thin.Contains(geometry.NewPoint2D(2, 0)))
}

func TestBoxEntityDistance(t *testing.T) {
	e := NewBoxEntity(labels.NewBox(geometry.NewPoint2D(5, 5), geometry.NewPoint2D(10, 4), "", labels.SourceManual))
	assert.Equal(t, 0.0, e.Distance(geometry.NewPoint2D(1, 4)))
	assert.InDelta(t, 2.0, e.Distance(geometry.NewPoint2D(5, 9)), 1e-9)
	assert.Equal(t, geometry.NewPoint2D(5, 5), e.Centroid())
}
