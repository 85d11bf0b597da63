package labels

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type idKind uint8

const (
	idNone idKind = iota
	idString
	idNumeric
)

// ObjectID identifies a label model. It is either unset, a string, or a
// legacy integer carried over from older label files.
type ObjectID struct {
	kind idKind
	s    string
	n    int64
}

// StringID returns a string identifier.
func StringID(s string) ObjectID {
	return ObjectID{kind: idString, s: s}
}

// NumericID returns a legacy integer identifier.
func NumericID(n int64) ObjectID {
	return ObjectID{kind: idNumeric, n: n}
}

// IsZero reports whether the identifier is unset.
func (id ObjectID) IsZero() bool { return id.kind == idNone }

// IsNumeric reports whether the identifier is a legacy integer.
func (id ObjectID) IsNumeric() bool { return id.kind == idNumeric }

// Numeric returns the legacy integer value.
func (id ObjectID) Numeric() (int64, bool) {
	return id.n, id.kind == idNumeric
}

// String returns the textual form. Unset identifiers yield "".
func (id ObjectID) String() string {
	switch id.kind {
	case idString:
		return id.s
	case idNumeric:
		return strconv.FormatInt(id.n, 10)
	default:
		return ""
	}
}

// MarshalJSON encodes unset ids as null and legacy ids as numbers.
func (id ObjectID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idString:
		return json.Marshal(id.s)
	case idNumeric:
		return []byte(strconv.FormatInt(id.n, 10)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, a string or an integer.
func (id *ObjectID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ObjectID{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("object id: %w", err)
		}
		v, err := n.Int64()
		if err != nil {
			// Integral values written as 3.0 or 3e2 are still legacy ids.
			f, ferr := n.Float64()
			if ferr != nil || f != math.Trunc(f) || math.Abs(f) >= 1<<63 {
				return fmt.Errorf("object id %s is not an integer", data)
			}
			v = int64(f)
		}
		*id = NumericID(v)
		return nil
	}
}

// ClassID is a nullable label class identifier. The empty string encodes as
// JSON null.
type ClassID string

// MarshalJSON encodes the empty class as null.
func (c ClassID) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON decodes null as the empty class.
func (c *ClassID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("label class: %w", err)
	}
	*c = ClassID(s)
	return nil
}
