package scene

import (
	"fmt"

	"labeltool/internal/labels"
)

// Factory builds the entity for a model of one label type.
type Factory func(m labels.Model) Entity

// Factories maps label types to entity constructors.
type Factories struct {
	byType map[labels.Type]Factory
}

// NewFactories returns an empty factory table.
func NewFactories() *Factories {
	return &Factories{byType: make(map[labels.Type]Factory)}
}

// DefaultFactories returns a table with every built-in label type.
func DefaultFactories() *Factories {
	f := NewFactories()
	f.Register(labels.TypePoint, func(m labels.Model) Entity { return NewPointEntity(m.(*labels.Point)) })
	f.Register(labels.TypeBox, func(m labels.Model) Entity { return NewBoxEntity(m.(*labels.Box)) })
	f.Register(labels.TypeOrientedEllipse, func(m labels.Model) Entity {
		return NewEllipseEntity(m.(*labels.OrientedEllipse))
	})
	f.Register(labels.TypePolygon, func(m labels.Model) Entity { return NewPolygonEntity(m.(*labels.Polygon)) })
	f.Register(labels.TypeComposite, func(m labels.Model) Entity { return NewCompositeEntity(m.(*labels.Composite)) })
	f.Register(labels.TypeGroup, func(m labels.Model) Entity { return NewGroupEntity(m.(*labels.Group)) })
	f.Register(labels.TypePlaceholder, func(m labels.Model) Entity {
		return newPlaceholderEntity(m.(*labels.Placeholder))
	})
	return f
}

// Register installs or replaces the factory for a label type.
func (f *Factories) Register(t labels.Type, factory Factory) {
	f.byType[t] = factory
}

// Has reports whether a factory is registered for t.
func (f *Factories) Has(t labels.Type) bool {
	_, ok := f.byType[t]
	return ok
}

// New builds the entity for m. Models of an unregistered type are a
// programming error and cause a panic.
func (f *Factories) New(m labels.Model) Entity {
	t := m.Info().LabelType
	factory, ok := f.byType[t]
	if !ok {
		panic(fmt.Sprintf("scene: no entity factory for label type %q", t))
	}
	return factory(m)
}
