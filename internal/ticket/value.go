package ticket

import (
	"cmp"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// Kind is the representation of a Value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindUint
	KindString
)

// Value is a single comparable cell. The zero Value is missing.
type Value struct {
	Kind Kind
	Uint uint64
	Str  string
}

// Missing returns the missing value.
func Missing() Value { return Value{} }

// Uint returns a numeric value.
func Uint(v uint64) Value { return Value{Kind: KindUint, Uint: v} }

// Str returns a string value.
func Str(s string) Value { return Value{Kind: KindString, Str: s} }

// IsMissing reports whether v carries no value.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// String renders the value for display. Missing renders as "<missing>".
func (v Value) String() string {
	switch v.Kind {
	case KindUint:
		return strconv.FormatUint(v.Uint, 10)
	case KindString:
		return v.Str
	default:
		return "<missing>"
	}
}

// Compare orders values: numbers ascending, strings lexicographically,
// missing after every present value.
func Compare(a, b Value) int {
	if a.Kind != b.Kind {
		if a.Kind == KindMissing {
			return 1
		}
		if b.Kind == KindMissing {
			return -1
		}
		return cmp.Compare(a.Kind, b.Kind)
	}
	switch a.Kind {
	case KindUint:
		return cmp.Compare(a.Uint, b.Uint)
	case KindString:
		return cmp.Compare(a.Str, b.Str)
	default:
		return 0
	}
}

// MarshalJSON encodes numbers as JSON numbers, strings as strings, missing as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindUint:
		return []byte(strconv.FormatUint(v.Uint, 10)), nil
	case KindString:
		return json.Marshal(v.Str)
	default:
		return []byte("null"), nil
	}
}

// MarshalYAML mirrors MarshalJSON.
func (v Value) MarshalYAML() (any, error) {
	switch v.Kind {
	case KindUint:
		return v.Uint, nil
	case KindString:
		return v.Str, nil
	default:
		return nil, nil
	}
}

// ParseValue converts user input (e.g. a CLI argument) into a Value for col.
// An empty string means missing for optional columns.
func ParseValue(col Column, s string) (Value, error) {
	if col.Numeric() {
		if s == "" {
			return Missing(), nil
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Value{}, eris.Wrapf(err, "ticket: parse %s value %q", col, s)
		}
		return Uint(n), nil
	}
	return Str(s), nil
}
