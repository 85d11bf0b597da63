package labels

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labeltool/pkg/geometry"
)

func TestObjectIDJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ObjectID
		numeric bool
	}{
		{"null", `null`, ObjectID{}, false},
		{"string", `"abc__3"`, StringID("abc__3"), false},
		{"integer", `17`, NumericID(17), true},
		{"float integer", `17.0`, NumericID(17), true},
		{"exponent integer", `3e2`, NumericID(300), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ObjectID
			require.NoError(t, json.Unmarshal([]byte(tt.input), &id))
			assert.Equal(t, tt.want, id)
			assert.Equal(t, tt.numeric, id.IsNumeric())
		})
	}

	for _, bad := range []string{`3.5`, `-0.25`, `1e30`, `true`} {
		var id ObjectID
		assert.Error(t, json.Unmarshal([]byte(bad), &id), "object id %s", bad)
	}

	out, err := json.Marshal(NumericID(5))
	require.NoError(t, err)
	assert.Equal(t, `5`, string(out))

	out, err = json.Marshal(ObjectID{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(out))
}

func TestDecodeLegacyPolygonVertices(t *testing.T) {
	data := `{"label_type":"polygon","label_class":"tree","object_id":4,
		"vertices":[{"x":0,"y":0},{"x":4,"y":0},{"x":4,"y":3}]}`

	m, err := Decode([]byte(data))
	require.NoError(t, err)

	poly, ok := m.(*Polygon)
	require.True(t, ok)
	require.Len(t, poly.Regions, 1)
	assert.Len(t, poly.Regions[0], 3)
	assert.Equal(t, ClassID("tree"), poly.LabelClass)
	n, ok := poly.ObjectID.Numeric()
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)
	assert.NotNil(t, poly.AnnoData)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"label_type":"hexagon"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLabelType))

	_, err = DecodeList([]byte(`[{"label_type":"point","position":{"x":1,"y":2}},{"label_type":"blob"}]`))
	assert.True(t, errors.Is(err, ErrUnknownLabelType))
}

func TestGroupRoundTrip(t *testing.T) {
	inner := NewPoint(geometry.NewPoint2D(1, 2), "a", SourceManual)
	inner.ObjectID = StringID("s__1")
	box := NewBox(geometry.NewPoint2D(5, 5), geometry.NewPoint2D(2, 4), "", SourceManual)
	group := NewGroup([]Model{inner, box}, "g", SourceManual)

	data, err := json.Marshal(group)
	require.NoError(t, err)

	m, err := Decode(data)
	require.NoError(t, err)
	g, ok := m.(*Group)
	require.True(t, ok)
	require.Len(t, g.ComponentModels, 2)

	p, ok := g.ComponentModels[0].(*Point)
	require.True(t, ok)
	assert.Equal(t, "s__1", p.ObjectID.String())
	assert.Equal(t, geometry.NewPoint2D(1, 2), p.Position)

	b, ok := g.ComponentModels[1].(*Box)
	require.True(t, ok)
	assert.Equal(t, ClassID(""), b.LabelClass)
	assert.Equal(t, geometry.NewRect(4, 3, 2, 4), b.Rect())
}

func TestHeaderJSON(t *testing.T) {
	h := NewHeader("img-1")
	h.Labels = append(h.Labels, NewPolygon([][]geometry.Point2D{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}}, "c", SourceManual))
	h.Complete = true
	h.SessionID = "sess"

	data, err := json.Marshal(h)
	require.NoError(t, err)

	var back Header
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "img-1", back.ImageID)
	assert.True(t, back.Complete)
	assert.Equal(t, "sess", back.SessionID)
	require.Len(t, back.Labels, 1)
	assert.Equal(t, TypePolygon, back.Labels[0].Info().LabelType)

	empty, err := json.Marshal(Header{ImageID: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"labels":[]`)
}

func TestSetTaskComplete(t *testing.T) {
	h := NewHeader("img")
	h.SetTaskComplete("finished", true)
	h.SetTaskComplete("finished", true)
	h.SetTaskComplete("checked", true)
	assert.Equal(t, []string{"finished", "checked"}, h.CompletedTasks)

	h.SetTaskComplete("finished", false)
	assert.Equal(t, []string{"checked"}, h.CompletedTasks)
}

func TestWalkVisitsNestedModels(t *testing.T) {
	a := NewPoint(geometry.Point2D{}, "", SourceManual)
	b := NewPoint(geometry.Point2D{}, "", SourceManual)
	inner := NewGroup([]Model{b}, "", SourceManual)
	outer := NewGroup([]Model{a, inner}, "", SourceManual)

	var seen []Model
	Walk([]Model{outer}, func(m Model) { seen = append(seen, m) })
	assert.Equal(t, []Model{outer, a, inner, b}, seen)
}

func TestMostFrequentClass(t *testing.T) {
	mk := func(cls ClassID) Model { return NewPoint(geometry.Point2D{}, cls, SourceManual) }

	assert.Equal(t, ClassID("b"), MostFrequentClass([]Model{mk("a"), mk("b"), mk("b")}))
	assert.Equal(t, ClassID("a"), MostFrequentClass([]Model{mk("a"), mk("b")}))
	assert.Equal(t, ClassID(""), MostFrequentClass(nil))
}
