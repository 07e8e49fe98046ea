package engine

import (
	"strconv"
	"strings"
)

// ValueKind enumerates the normalized PDF primitive types.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindReal
	KindName
	KindString
	KindArray
	KindDict
)

// Value is the typed accessor layer over the engine's untyped
// dictionary entries. The same logical field has been observed arriving
// as a number, a string, a name or a wrapped boolean depending on which
// code path wrote it; Value normalizes each primitive once, at the
// engine boundary, so call sites never repeat ad hoc multi-type
// extraction.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	dict map[string]Value
}

// Constructors.

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a native boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Real wraps a real number.
func Real(f float64) Value { return Value{kind: KindReal, f: f} }

// Name wraps a PDF name object. The leading marker character, if the
// caller includes one, is stripped; names are stored bare.
func Name(s string) Value {
	return Value{kind: KindName, s: strings.TrimPrefix(s, "/")}
}

// String wraps a PDF string object.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps an array of values.
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// NumberArray wraps a float slice as an array value.
func NumberArray(fs []float64) Value {
	vs := make([]Value, len(fs))
	for i, f := range fs {
		vs[i] = Real(f)
	}
	return Array(vs...)
}

// DictValue wraps a nested dictionary.
func DictValue(m map[string]Value) Value { return Value{kind: KindDict, dict: m} }

// Kind returns the normalized primitive kind.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is null or absent.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the value as text. Names and strings both qualify; the
// name marker is already stripped. ok is false for non-textual kinds.
func (v Value) Text() (string, bool) {
	switch v.kind {
	case KindName, KindString:
		return v.s, true
	default:
		return "", false
	}
}

// Flag normalizes the three boolean representations seen in the wild: a
// native boolean, a name (`Yes`, `On`, `true`), or a string of the
// same literals. ok is false when the value cannot be read as a flag.
func (v Value) Flag() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindName, KindString:
		switch v.s {
		case "Yes", "On", "true", "True", "1":
			return true, true
		case "Off", "No", "false", "False", "0", "":
			return false, true
		}
		return false, false
	case KindInt:
		return v.i != 0, true
	default:
		return false, false
	}
}

// Number returns the value as a float. Integers, reals, and numeric
// strings all qualify.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindReal:
		return v.f, true
	case KindString, KindName:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Integer returns the value as an int, truncating reals.
func (v Value) Integer() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindReal:
		return int64(v.f), true
	case KindString, KindName:
		i, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Items returns the value's array elements.
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// Floats flattens an array value into a float slice. Non-numeric
// elements make the whole extraction fail; a partially numeric array is
// malformed data, not a partial answer.
func (v Value) Floats() ([]float64, bool) {
	items, ok := v.Items()
	if !ok {
		return nil, false
	}
	out := make([]float64, len(items))
	for i, item := range items {
		f, ok := item.Number()
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// Entries returns the value's nested dictionary.
func (v Value) Entries() (map[string]Value, bool) {
	if v.kind != KindDict {
		return nil, false
	}
	return v.dict, true
}
