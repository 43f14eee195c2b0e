package pipeline

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/JakeFAU/jobingest/internal/jobs"
	"github.com/JakeFAU/jobingest/internal/record"
)

// FieldType is the semantic type a field is coerced into.
type FieldType int

// Supported field types.
const (
	TypeFloat FieldType = iota + 1
	TypeInt
	TypeBool
	TypeTimestamp
)

func (t FieldType) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// FieldTypes maps field names to their declared types.
type FieldTypes map[string]FieldType

// JobFieldTypes derives the type map from the job schema.
func JobFieldTypes() FieldTypes {
	types := FieldTypes{}
	for _, spec := range jobs.Schema {
		switch spec.Semantic {
		case jobs.SemanticFloat:
			types[spec.Name] = TypeFloat
		case jobs.SemanticTimestamp:
			types[spec.Name] = TypeTimestamp
		}
	}
	return types
}

// Normalize returns a copy of rec with every typed field coerced. Strings are
// parsed into their declared type, timestamps are re-emitted in canonical
// ISO-8601 text, and an empty string in a typed field becomes null. Absent
// fields stay absent. rec itself is not modified.
func Normalize(rec record.Record, types FieldTypes) (record.Record, error) {
	out := rec.Clone()
	for _, name := range sortedNames(types) {
		v, ok := out[name]
		if !ok {
			continue
		}
		converted, err := coerce(v, types[name])
		if err != nil {
			return nil, &DropError{
				ReqID: Identity(rec),
				Kind:  ErrConversion,
				Field: name,
				Err:   err,
			}
		}
		out[name] = converted
	}
	return out, nil
}

func coerce(v record.Value, want FieldType) (record.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	if s, ok := v.Str(); ok && strings.TrimSpace(s) == "" {
		return record.Null(), nil
	}
	switch want {
	case TypeFloat:
		return coerceFloat(v)
	case TypeInt:
		return coerceInt(v)
	case TypeBool:
		return coerceBool(v)
	case TypeTimestamp:
		return coerceTimestamp(v)
	default:
		return record.Value{}, fmt.Errorf("unknown field type %v", want)
	}
}

func coerceFloat(v record.Value) (record.Value, error) {
	switch v.Kind() {
	case record.KindNumber:
		return v, nil
	case record.KindString:
		s, _ := v.Str()
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return record.Value{}, fmt.Errorf("parse float %q: %w", s, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return record.Value{}, fmt.Errorf("parse float %q: not a finite number", s)
		}
		return record.Number(f), nil
	default:
		return record.Value{}, fmt.Errorf("cannot convert %s to float", v.Kind())
	}
}

func coerceInt(v record.Value) (record.Value, error) {
	switch v.Kind() {
	case record.KindNumber:
		f, _ := v.Num()
		if f != math.Trunc(f) {
			return record.Value{}, fmt.Errorf("number %v is not integral", f)
		}
		return v, nil
	case record.KindString:
		s, _ := v.Str()
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return record.Value{}, fmt.Errorf("parse int %q: %w", s, err)
		}
		return record.Number(float64(n)), nil
	default:
		return record.Value{}, fmt.Errorf("cannot convert %s to int", v.Kind())
	}
}

func coerceBool(v record.Value) (record.Value, error) {
	switch v.Kind() {
	case record.KindBool:
		return v, nil
	case record.KindString:
		s, _ := v.Str()
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return record.Value{}, fmt.Errorf("parse bool %q: %w", s, err)
		}
		return record.Bool(b), nil
	default:
		return record.Value{}, fmt.Errorf("cannot convert %s to bool", v.Kind())
	}
}

func coerceTimestamp(v record.Value) (record.Value, error) {
	switch v.Kind() {
	case record.KindTime:
		t, _ := v.TimeValue()
		return record.String(record.FormatTimestamp(t)), nil
	case record.KindString:
		s, _ := v.Str()
		t, err := record.ParseTimestamp(s)
		if err != nil {
			return record.Value{}, err
		}
		return record.String(record.FormatTimestamp(t)), nil
	default:
		return record.Value{}, fmt.Errorf("cannot convert %s to timestamp", v.Kind())
	}
}

func sortedNames(types FieldTypes) []string {
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
