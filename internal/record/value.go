// Package record models the loosely-structured job payloads that flow through the
// ingest pipeline. A Record maps field names to tagged Values so the pipeline can
// reason about each field's representation without resorting to bare interface{}.
package record

import (
	"fmt"
	"math"
	"sort"
	"time"

	gojson "github.com/goccy/go-json"
)

// Kind identifies which representation a Value currently holds.
type Kind uint8

// Supported value kinds.
const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindTime
	KindList
	KindMap
)

// String returns the lowercase kind name used in logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "timestamp"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a tagged union over the field representations a job record may carry.
// The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
	list []Value
	m    map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a float64.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time wraps a timestamp.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// List wraps an ordered list of values.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Map wraps a nested mapping.
func Map(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindMap, m: fields}
}

// Kind reports the representation held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Composite reports whether v is a list or a nested mapping.
func (v Value) Composite() bool { return v.kind == KindList || v.kind == KindMap }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// BoolValue returns the boolean payload.
func (v Value) BoolValue() (bool, bool) { return v.b, v.kind == KindBool }

// TimeValue returns the timestamp payload.
func (v Value) TimeValue() (time.Time, bool) { return v.t, v.kind == KindTime }

// Items returns the list payload. The slice is shared; callers must not modify it.
func (v Value) Items() ([]Value, bool) { return v.list, v.kind == KindList }

// Fields returns the map payload. The map is shared; callers must not modify it.
func (v Value) Fields() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Truthy applies the producer's notion of "present": null, empty strings, zero,
// false and empty collections are all falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindString:
		return v.str != ""
	case KindNumber:
		return v.num != 0
	case KindBool:
		return v.b
	case KindTime:
		return true
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return len(v.m) > 0
	default:
		return false
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return Value{kind: KindList, list: items}
	case KindMap:
		fields := make(map[string]Value, len(v.m))
		for k, item := range v.m {
			fields[k] = item.Clone()
		}
		return Value{kind: KindMap, m: fields}
	default:
		return v
	}
}

// Interface converts v into plain Go values (nil, string, float64, bool,
// time.Time, []any, map[string]any) suitable for drivers and encoders.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON renders v using the canonical encoding.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendCanonical(nil), nil
}

// CanonicalJSON renders v as compact-but-spaced JSON text: ", " between items,
// ": " after keys, keys sorted, HTML characters left unescaped.
func (v Value) CanonicalJSON() string {
	return string(v.appendCanonical(nil))
}

func (v Value) appendCanonical(buf []byte) []byte {
	switch v.kind {
	case KindString:
		return appendQuoted(buf, v.str)
	case KindNumber:
		return appendNumber(buf, v.num)
	case KindBool:
		if v.b {
			return append(buf, "true"...)
		}
		return append(buf, "false"...)
	case KindTime:
		return appendQuoted(buf, FormatTimestamp(v.t))
	case KindList:
		buf = append(buf, '[')
		for i, item := range v.list {
			if i > 0 {
				buf = append(buf, ", "...)
			}
			buf = item.appendCanonical(buf)
		}
		return append(buf, ']')
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ", "...)
			}
			buf = appendQuoted(buf, k)
			buf = append(buf, ": "...)
			buf = v.m[k].appendCanonical(buf)
		}
		return append(buf, '}')
	default:
		return append(buf, "null"...)
	}
}

func appendQuoted(buf []byte, s string) []byte {
	quoted, err := gojson.MarshalNoEscape(s)
	if err != nil {
		// strings always marshal; keep the output well-formed regardless
		return append(buf, `""`...)
	}
	return append(buf, quoted...)
}

func appendNumber(buf []byte, f float64) []byte {
	switch {
	case math.IsNaN(f):
		return append(buf, "NaN"...)
	case math.IsInf(f, 1):
		return append(buf, "Infinity"...)
	case math.IsInf(f, -1):
		return append(buf, "-Infinity"...)
	}
	out, err := gojson.Marshal(f)
	if err != nil {
		return append(buf, "null"...)
	}
	return append(buf, out...)
}

// FromAny converts decoded JSON (or any plain Go value of a supported type)
// into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case gojson.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("decode number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case time.Time:
		return Time(t), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return List(items...), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("list item %d: %w", i, err)
			}
			items[i] = v
		}
		return List(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = v
		}
		return Map(fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}
