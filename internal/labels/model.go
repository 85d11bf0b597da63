// Package labels defines the persisted label models: a tagged variant over
// shape kinds plus the header that carries the label list of one image.
package labels

import (
	"encoding/json"
	"errors"
	"fmt"

	"labeltool/pkg/geometry"
)

// Type is the label_type tag of a model.
type Type string

const (
	TypePoint           Type = "point"
	TypeBox             Type = "box"
	TypeOrientedEllipse Type = "oriented_ellipse"
	TypePolygon         Type = "polygon"
	TypeComposite       Type = "composite"
	TypeGroup           Type = "group"
	TypePlaceholder     Type = "placeholder"
)

// Provenance strings stored in Common.Source.
const (
	SourceManual = "manual"
	SourceDextr  = "auto:dextr"
)

// ErrUnknownLabelType is returned when decoding a label whose label_type is
// not one of the known shape kinds.
var ErrUnknownLabelType = errors.New("unknown label type")

// Model is implemented by every label variant. Models are always handled by
// pointer so that the scene can compare them by identity.
type Model interface {
	Info() *Common
}

// Common holds the fields shared by all label variants.
type Common struct {
	LabelType  Type           `json:"label_type"`
	LabelClass ClassID        `json:"label_class"`
	Source     string         `json:"source,omitempty"`
	AnnoData   map[string]any `json:"anno_data,omitempty"`
	ObjectID   ObjectID       `json:"object_id"`
}

// Info returns the shared fields.
func (c *Common) Info() *Common { return c }

func newCommon(t Type, class ClassID, source string) Common {
	return Common{LabelType: t, LabelClass: class, Source: source, AnnoData: map[string]any{}}
}

// Point is a single-point label.
type Point struct {
	Common
	Position geometry.Point2D `json:"position"`
}

// Box is an axis-aligned box label described by its centre and size.
type Box struct {
	Common
	Centre geometry.Point2D `json:"centre"`
	Size   geometry.Point2D `json:"size"`
}

// Rect returns the box as a rectangle.
func (b *Box) Rect() geometry.Rect {
	return geometry.NewRect(b.Centre.X-b.Size.X/2, b.Centre.Y-b.Size.Y/2, b.Size.X, b.Size.Y)
}

// OrientedEllipse is an ellipse with two radii rotated by OrientationRadians.
type OrientedEllipse struct {
	Common
	Centre             geometry.Point2D `json:"centre"`
	Radius1            float64          `json:"radius1"`
	Radius2            float64          `json:"radius2"`
	OrientationRadians float64          `json:"orientation_radians"`
}

// Polygon is a multi-region polygon label. A point is inside the label iff
// an odd number of regions enclose it.
type Polygon struct {
	Common
	Regions [][]geometry.Point2D `json:"regions"`
}

// UnmarshalJSON accepts the legacy single-region "vertices" form.
func (p *Polygon) UnmarshalJSON(data []byte) error {
	var raw struct {
		Common
		Regions  [][]geometry.Point2D `json:"regions"`
		Vertices []geometry.Point2D   `json:"vertices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Common = raw.Common
	p.Regions = raw.Regions
	if p.Regions == nil && raw.Vertices != nil {
		p.Regions = [][]geometry.Point2D{raw.Vertices}
	}
	if p.Regions == nil {
		p.Regions = [][]geometry.Point2D{}
	}
	return nil
}

// Composite refers to other root labels by object id.
type Composite struct {
	Common
	Components []ObjectID `json:"components"`
}

// Group owns its component models.
type Group struct {
	Common
	ComponentModels []Model `json:"component_models"`
}

// UnmarshalJSON decodes the nested component models by their label_type.
func (g *Group) UnmarshalJSON(data []byte) error {
	var raw struct {
		Common
		ComponentModels []json.RawMessage `json:"component_models"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	components, err := decodeAll(raw.ComponentModels)
	if err != nil {
		return fmt.Errorf("group components: %w", err)
	}
	g.Common = raw.Common
	g.ComponentModels = components
	return nil
}

// Placeholder stands in for a label that is still being computed elsewhere.
type Placeholder struct {
	Common
}

// NewPoint creates a point label.
func NewPoint(pos geometry.Point2D, class ClassID, source string) *Point {
	return &Point{Common: newCommon(TypePoint, class, source), Position: pos}
}

// NewBox creates a box label.
func NewBox(centre, size geometry.Point2D, class ClassID, source string) *Box {
	return &Box{Common: newCommon(TypeBox, class, source), Centre: centre, Size: size}
}

// NewOrientedEllipse creates an oriented ellipse label.
func NewOrientedEllipse(centre geometry.Point2D, r1, r2, orientation float64, class ClassID, source string) *OrientedEllipse {
	return &OrientedEllipse{
		Common:             newCommon(TypeOrientedEllipse, class, source),
		Centre:             centre,
		Radius1:            r1,
		Radius2:            r2,
		OrientationRadians: orientation,
	}
}

// NewPolygon creates a polygon label. The regions slice is used as is.
func NewPolygon(regions [][]geometry.Point2D, class ClassID, source string) *Polygon {
	if regions == nil {
		regions = [][]geometry.Point2D{}
	}
	return &Polygon{Common: newCommon(TypePolygon, class, source), Regions: regions}
}

// NewComposite creates a composite label over the given component ids.
func NewComposite(components []ObjectID, class ClassID, source string) *Composite {
	return &Composite{Common: newCommon(TypeComposite, class, source), Components: components}
}

// NewGroup creates a group label owning the given models.
func NewGroup(components []Model, class ClassID, source string) *Group {
	return &Group{Common: newCommon(TypeGroup, class, source), ComponentModels: components}
}

// NewPlaceholder creates a placeholder label.
func NewPlaceholder(source string) *Placeholder {
	return &Placeholder{Common: newCommon(TypePlaceholder, "", source)}
}

// Decode decodes a single label, dispatching on its label_type.
func Decode(data []byte) (Model, error) {
	var tag struct {
		LabelType Type `json:"label_type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("decode label: %w", err)
	}

	var m Model
	switch tag.LabelType {
	case TypePoint:
		m = &Point{}
	case TypeBox:
		m = &Box{}
	case TypeOrientedEllipse:
		m = &OrientedEllipse{}
	case TypePolygon:
		m = &Polygon{}
	case TypeComposite:
		m = &Composite{}
	case TypeGroup:
		m = &Group{}
	case TypePlaceholder:
		m = &Placeholder{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLabelType, tag.LabelType)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode %s label: %w", tag.LabelType, err)
	}
	if m.Info().AnnoData == nil {
		m.Info().AnnoData = map[string]any{}
	}
	return m, nil
}

// DecodeList decodes a JSON array of labels.
func DecodeList(data []byte) ([]Model, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode label list: %w", err)
	}
	return decodeAll(raw)
}

func decodeAll(raw []json.RawMessage) ([]Model, error) {
	models := make([]Model, 0, len(raw))
	for i, r := range raw {
		m, err := Decode(r)
		if err != nil {
			return nil, fmt.Errorf("label %d: %w", i, err)
		}
		models = append(models, m)
	}
	return models, nil
}

// Walk calls fn for every model in the list, descending into group
// components after visiting the group itself.
func Walk(models []Model, fn func(Model)) {
	for _, m := range models {
		fn(m)
		if g, ok := m.(*Group); ok {
			Walk(g.ComponentModels, fn)
		}
	}
}

// MostFrequentClass returns the class occurring most often among the models.
// Ties go to the class seen first.
func MostFrequentClass(models []Model) ClassID {
	counts := make(map[ClassID]int)
	var order []ClassID
	for _, m := range models {
		cls := m.Info().LabelClass
		if _, seen := counts[cls]; !seen {
			order = append(order, cls)
		}
		counts[cls]++
	}

	var best ClassID
	bestCount := 0
	for _, cls := range order {
		if counts[cls] > bestCount {
			best = cls
			bestCount = counts[cls]
		}
	}
	return best
}
