// Package value implements the normalized field-value model: a tagged
// union over Elasticsearch's supported primitive kinds, plus the JSON
// coercion rules that turn a raw decoded JSON value into one.
package value

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the closed set of field kinds a Mapping may declare.
type Kind string

// Field kind constants, matching the closed set.
const (
	KindInteger Kind = "integer"
	KindFloat   Kind = "float"
	KindBoolean Kind = "boolean"
	KindKeyword Kind = "keyword"
	KindText    Kind = "text"
	KindDate    Kind = "date"
)

// Valid reports whether k is one of the declared field kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInteger, KindFloat, KindBoolean, KindKeyword, KindText, KindDate:
		return true
	}
	return false
}

// Value is a single coerced field value. Exactly one of the typed fields
// is meaningful, selected by Kind; IsNull overrides all of them.
type Value struct {
	Kind    Kind
	IsNull  bool
	Int     int64
	Float   float64
	Bool    bool
	Str     string // used for Keyword and Text; Date is held in Int as epoch-millis
	Array   []Value
	IsArray bool
}

// Null returns the Null value for kind k.
func Null(k Kind) Value { return Value{Kind: k, IsNull: true} }

// NewInt builds an integer Value.
func NewInt(v int64) Value { return Value{Kind: KindInteger, Int: v} }

// NewFloat builds a float Value.
func NewFloat(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// NewBool builds a boolean Value.
func NewBool(v bool) Value { return Value{Kind: KindBoolean, Bool: v} }

// NewKeyword builds a keyword Value.
func NewKeyword(v string) Value { return Value{Kind: KindKeyword, Str: v} }

// NewText builds a text Value.
func NewText(v string) Value { return Value{Kind: KindText, Str: v} }

// NewDateMillis builds a date Value stored as epoch-millis.
func NewDateMillis(ms int64) Value { return Value{Kind: KindDate, Int: ms} }

// NewArray wraps a slice of element values.
func NewArray(kind Kind, elems []Value) Value {
	return Value{Kind: kind, Array: elems, IsArray: true}
}

// Coerce converts a raw decoded-JSON value (string, float64, bool, nil,
// []any, map[string]any, or int64) into a Value of the declared Kind,
// following the coercion table. Arrays are coerced element-wise;
// a bare nil becomes Null regardless of kind.
func Coerce(kind Kind, raw any) (Value, error) {
	if raw == nil {
		return Null(kind), nil
	}
	if arr, ok := raw.([]any); ok {
		elems := make([]Value, 0, len(arr))
		for _, e := range arr {
			v, err := Coerce(kind, e)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, v)
		}
		return NewArray(kind, elems), nil
	}

	switch kind {
	case KindInteger:
		return coerceInteger(raw)
	case KindFloat:
		return coerceFloat(raw)
	case KindBoolean:
		return coerceBoolean(raw)
	case KindKeyword:
		return Value{Kind: KindKeyword, Str: stringify(raw)}, coerceStringOK(raw)
	case KindText:
		return Value{Kind: KindText, Str: stringify(raw)}, coerceStringOK(raw)
	case KindDate:
		return coerceDate(raw)
	default:
		return Value{}, fmt.Errorf("unsupported field kind %q", kind)
	}
}

func coerceStringOK(raw any) error {
	switch raw.(type) {
	case string, float64, int64, bool:
		return nil
	default:
		return fmt.Errorf("cannot coerce %T to string field", raw)
	}
}

func coerceInteger(raw any) (Value, error) {
	switch v := raw.(type) {
	case float64:
		if v != float64(int64(v)) {
			return Value{}, fmt.Errorf("value [%v] has a decimal part, cannot coerce to integer", v)
		}
		return NewInt(int64(v)), nil
	case int64:
		return NewInt(v), nil
	case int:
		return NewInt(int64(v)), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("cannot parse %q as integer", v)
		}
		return NewInt(n), nil
	default:
		return Value{}, fmt.Errorf("cannot coerce %T to integer", raw)
	}
}

func coerceFloat(raw any) (Value, error) {
	switch v := raw.(type) {
	case float64:
		return NewFloat(v), nil
	case int64:
		return NewFloat(float64(v)), nil
	case int:
		return NewFloat(float64(v)), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Value{}, fmt.Errorf("cannot parse %q as float", v)
		}
		return NewFloat(f), nil
	default:
		return Value{}, fmt.Errorf("cannot coerce %T to float", raw)
	}
}

func coerceBoolean(raw any) (Value, error) {
	switch v := raw.(type) {
	case bool:
		return NewBool(v), nil
	case string:
		switch v {
		case "true":
			return NewBool(true), nil
		case "false":
			return NewBool(false), nil
		default:
			return Value{}, fmt.Errorf("cannot parse %q as boolean", v)
		}
	default:
		return Value{}, fmt.Errorf("cannot coerce %T to boolean", raw)
	}
}

// dateLayouts are tried in order for ISO-8601 string coercion.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func coerceDate(raw any) (Value, error) {
	switch v := raw.(type) {
	case float64:
		return NewDateMillis(int64(v)), nil
	case int64:
		return NewDateMillis(v), nil
	case int:
		return NewDateMillis(int64(v)), nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return NewDateMillis(t.UnixMilli()), nil
			}
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return NewDateMillis(n), nil
		}
		return Value{}, fmt.Errorf("failed to parse date field %q", v)
	default:
		return Value{}, fmt.Errorf("cannot coerce %T to date", raw)
	}
}

func stringify(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Elements returns the value's elements for "any-element-matches"
// evaluation: a single-element slice for scalars, or the array contents.
func (v Value) Elements() []Value {
	if v.IsArray {
		return v.Array
	}
	return []Value{v}
}

// EqualTo reports whether v equals other using the comparison semantics of
// query evaluation: byte-identical for keyword/text, numeric equality for
// integer/float/boolean/date (treated as millis).
func (v Value) EqualTo(other Value) bool {
	if v.IsNull || other.IsNull {
		return false
	}
	switch v.Kind {
	case KindKeyword, KindText:
		return v.Str == other.Str
	case KindInteger, KindDate:
		return float64(v.Int) == numericOf(other)
	case KindFloat:
		return v.Float == numericOf(other)
	case KindBoolean:
		return v.Bool == (numericOf(other) != 0)
	default:
		return false
	}
}

func numericOf(v Value) float64 {
	switch v.Kind {
	case KindInteger, KindDate:
		return float64(v.Int)
	case KindFloat:
		return v.Float
	case KindBoolean:
		if v.Bool {
			return 1
		}
		return 0
	case KindKeyword, KindText:
		f, _ := strconv.ParseFloat(v.Str, 64)
		return f
	default:
		return 0
	}
}

// CanonicalKey returns a stable string form for grouping (aggregation
// bucket keys).
func (v Value) CanonicalKey() string {
	if v.IsNull {
		return ""
	}
	switch v.Kind {
	case KindKeyword, KindText:
		return v.Str
	case KindInteger, KindDate:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// Compare orders two values for sort purposes. Null values compare as
// greater than any non-null value, per query evaluation ("sorts last regardless
// of direction").
func Compare(a, b Value) int {
	if a.IsNull && b.IsNull {
		return 0
	}
	if a.IsNull {
		return 1
	}
	if b.IsNull {
		return -1
	}
	switch a.Kind {
	case KindKeyword, KindText:
		return strings.Compare(a.Str, b.Str)
	default:
		af, bf := numericOf(a), numericOf(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
}
