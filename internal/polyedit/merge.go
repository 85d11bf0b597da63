package polyedit

import (
	"labeltool/internal/labels"
	"labeltool/internal/logging"
	"labeltool/internal/regions"
	"labeltool/internal/scene"
)

// MergePolygons replaces the selected polygon labels with one label
// covering their union, classed with the most frequent class among them.
// The selection is always cleared. Nothing is merged unless at least two
// labels are selected and all of them are polygons; nil is returned then.
func MergePolygons(s *scene.Scene) *scene.PolygonEntity {
	selection := s.Selection()
	s.UnselectAll()

	if len(selection) < 2 {
		return nil
	}

	polys := make([]*scene.PolygonEntity, 0, len(selection))
	models := make([]labels.Model, 0, len(selection))
	for _, e := range selection {
		p, ok := e.(*scene.PolygonEntity)
		if !ok {
			return nil
		}
		polys = append(polys, p)
		models = append(models, p.Model())
	}

	merged := regions.Clone(polys[0].Regions())
	for _, p := range polys[1:] {
		merged = regions.Union(merged, p.Regions())
	}
	model := labels.NewPolygon(merged, labels.MostFrequentClass(models), labels.SourceManual)

	for _, p := range polys {
		s.Destroy(p)
	}

	e := s.GetOrCreate(model).(*scene.PolygonEntity)
	s.AddRoot(e)
	logging.For("polyedit").Debug("merged polygon labels", "count", len(polys), "label", scene.IDOf(e))
	return e
}
