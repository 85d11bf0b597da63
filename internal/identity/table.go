// Package identity assigns stable object ids to label models and resolves
// legacy integer ids to their rewritten string form.
package identity

import (
	"fmt"

	"github.com/google/uuid"

	"labeltool/internal/labels"
	"labeltool/internal/logging"
)

// Table maps object ids to label models for one scene.
//
// Fresh ids have the form "<prefix>__<n>" with n counting from 1, skipping
// ids already registered. Legacy integer ids are rewritten to
// "<conversion-prefix>__<n>", where the conversion prefix is a random UUID
// chosen on first use. Registering two models under the same explicit id
// replaces the earlier lookup entry.
type Table struct {
	prefix           string
	conversionPrefix string
	counter          int
	byID             map[string]labels.Model
	legacy           map[int64]string
}

// New creates a table that mints ids with the given prefix. An empty prefix
// is replaced by a random UUID.
func New(prefix string) *Table {
	if prefix == "" {
		prefix = uuid.NewString()
		logging.For("identity").Debug("no id prefix provided, using random UUID", "prefix", prefix)
	}
	return &Table{
		prefix:  prefix,
		counter: 1,
		byID:    make(map[string]labels.Model),
		legacy:  make(map[int64]string),
	}
}

// Prefix returns the prefix used for freshly minted ids.
func (t *Table) Prefix() string {
	return t.prefix
}

// Register installs m in the table and returns its id. Models that already
// carry an id keep it (legacy integers are rewritten in place); others get a
// freshly minted id.
func (t *Table) Register(m labels.Model) string {
	info := m.Info()

	var id string
	switch {
	case info.ObjectID.IsNumeric():
		n, _ := info.ObjectID.Numeric()
		id = t.convertLegacy(n)
		info.ObjectID = labels.StringID(id)
	case !info.ObjectID.IsZero():
		id = info.ObjectID.String()
	default:
		id = t.mint()
		info.ObjectID = labels.StringID(id)
	}

	t.byID[id] = m
	return id
}

// mint returns the next id with the table's prefix that is not registered.
func (t *Table) mint() string {
	for {
		id := fmt.Sprintf("%s__%d", t.prefix, t.counter)
		t.counter++
		if _, taken := t.byID[id]; !taken {
			return id
		}
	}
}

func (t *Table) convertLegacy(n int64) string {
	if t.conversionPrefix == "" {
		t.conversionPrefix = uuid.NewString()
	}
	id := fmt.Sprintf("%s__%d", t.conversionPrefix, n)
	t.legacy[n] = id
	return id
}

// Unregister removes the lookup entry for m. The model keeps its id so it can
// be registered again later.
func (t *Table) Unregister(m labels.Model) {
	id := m.Info().ObjectID
	if id.IsZero() {
		return
	}
	delete(t.byID, id.String())
}

// ResolveLegacy maps a legacy integer id to the id it was rewritten to.
// Ids without a recorded rewrite are returned unchanged.
func (t *Table) ResolveLegacy(id labels.ObjectID) labels.ObjectID {
	if n, ok := id.Numeric(); ok {
		if newID, found := t.legacy[n]; found {
			return labels.StringID(newID)
		}
	}
	return id
}

// Get returns the model registered under id.
func (t *Table) Get(id string) (labels.Model, bool) {
	m, ok := t.byID[id]
	return m, ok
}

// Len returns the number of registered ids.
func (t *Table) Len() int {
	return len(t.byID)
}
