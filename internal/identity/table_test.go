package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labeltool/internal/labels"
	"labeltool/pkg/geometry"
)

func newPoint(id labels.ObjectID) *labels.Point {
	p := labels.NewPoint(geometry.Point2D{}, "", labels.SourceManual)
	p.ObjectID = id
	return p
}

func TestRegisterMintsSequentialIDs(t *testing.T) {
	tbl := New("testprefix")
	a := newPoint(labels.ObjectID{})
	b := newPoint(labels.ObjectID{})

	assert.Equal(t, "testprefix__1", tbl.Register(a))
	assert.Equal(t, "testprefix__2", tbl.Register(b))
	assert.Equal(t, "testprefix__1", a.ObjectID.String())

	// Re-registering keeps the assigned id.
	assert.Equal(t, "testprefix__2", tbl.Register(b))
	assert.Equal(t, 2, tbl.Len())
}

func TestEmptyPrefixUsesUUID(t *testing.T) {
	tbl := New("")
	require.NotEmpty(t, tbl.Prefix())
	a := newPoint(labels.ObjectID{})
	id := tbl.Register(a)
	assert.True(t, strings.HasPrefix(id, tbl.Prefix()+"__"), id)
}

func TestRegisterLegacyNumericID(t *testing.T) {
	tbl := New("pqr")
	a := newPoint(labels.NumericID(12345))
	id := tbl.Register(a)

	assert.True(t, strings.HasSuffix(id, "__12345"), id)
	assert.False(t, strings.HasPrefix(id, "pqr__"), "legacy ids use the conversion prefix")
	assert.False(t, a.ObjectID.IsNumeric())

	got, ok := tbl.Get(id)
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.Equal(t, labels.StringID(id), tbl.ResolveLegacy(labels.NumericID(12345)))
	assert.Equal(t, labels.NumericID(99), tbl.ResolveLegacy(labels.NumericID(99)))
	assert.Equal(t, labels.StringID("abc"), tbl.ResolveLegacy(labels.StringID("abc")))
}

func TestLegacyIDStableAcrossReregistration(t *testing.T) {
	tbl := New("pqr")
	first := newPoint(labels.NumericID(7))
	second := newPoint(labels.NumericID(7))
	other := newPoint(labels.NumericID(8))

	id1 := tbl.Register(first)
	tbl.Unregister(first)
	id2 := tbl.Register(second)
	id3 := tbl.Register(other)

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
	// Both legacy ids share one conversion prefix.
	assert.Equal(t, strings.TrimSuffix(id1, "__7"), strings.TrimSuffix(id3, "__8"))
}

func TestUnregisterKeepsModelID(t *testing.T) {
	tbl := New("p")
	a := newPoint(labels.ObjectID{})
	id := tbl.Register(a)
	tbl.Unregister(a)

	_, ok := tbl.Get(id)
	assert.False(t, ok)
	assert.Equal(t, id, a.ObjectID.String())

	// Unregistering a model without an id is harmless.
	tbl.Unregister(newPoint(labels.ObjectID{}))
}

func TestIDsUniqueAcrossRegistrations(t *testing.T) {
	tbl := New("u")
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		var m *labels.Point
		switch i % 3 {
		case 0:
			m = newPoint(labels.ObjectID{})
		case 1:
			m = newPoint(labels.NumericID(int64(i)))
		default:
			m = newPoint(labels.StringID("explicit-" + string(rune('a'+i%26)) + "-" + string(rune('A'+i/26))))
		}
		id := tbl.Register(m)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true

		got, ok := tbl.Get(id)
		require.True(t, ok)
		require.Same(t, m, got)
	}
}

func TestDuplicateExplicitIDLastWriterWins(t *testing.T) {
	tbl := New("p")
	a := newPoint(labels.StringID("dup"))
	b := newPoint(labels.StringID("dup"))

	tbl.Register(a)
	tbl.Register(b)

	got, ok := tbl.Get("dup")
	require.True(t, ok)
	assert.Same(t, b, got, "the later registration replaces the lookup entry")
	assert.Equal(t, 1, tbl.Len())

	// Unregistering the earlier model drops the shared entry too.
	tbl.Unregister(a)
	_, ok = tbl.Get("dup")
	assert.False(t, ok)
}

func TestMintSkipsLoadedIDs(t *testing.T) {
	tbl := New("s")
	tbl.Register(newPoint(labels.StringID("s__1")))
	tbl.Register(newPoint(labels.StringID("s__3")))

	assert.Equal(t, "s__2", tbl.Register(newPoint(labels.ObjectID{})))
	assert.Equal(t, "s__4", tbl.Register(newPoint(labels.ObjectID{})))
}
