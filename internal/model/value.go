package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the only text form accepted for DATE fields.
const DateLayout = "2006-01-02T15:04:05.000Z"

// ValueKind is the runtime type carried by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindInteger
	KindFloat
	KindBoolean
	KindDate
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	}
	return "unknown"
}

// Value is a custom field value: exactly one of null, string, integer,
// float, boolean or date.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
}

// FieldMap maps field names to values.
type FieldMap map[string]Value

// Constructors for each value kind.
func Null() Value            { return Value{} }
func String(s string) Value  { return Value{kind: KindString, s: s} }
func Integer(i int64) Value  { return Value{kind: KindInteger, i: i} }
func Float(f float64) Value  { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value      { return Value{kind: KindBoolean, b: b} }
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// Kind returns the runtime type of the value.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// ValueOf converts a Go runtime value into a Value. Text is never
// re-typed: "5" stays a string.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case int:
		return Integer(int64(v)), nil
	case int8:
		return Integer(int64(v)), nil
	case int16:
		return Integer(int64(v)), nil
	case int32:
		return Integer(int64(v)), nil
	case int64:
		return Integer(v), nil
	case uint:
		return fromUint(uint64(v))
	case uint8:
		return Integer(int64(v)), nil
	case uint16:
		return Integer(int64(v)), nil
	case uint32:
		return Integer(int64(v)), nil
	case uint64:
		return fromUint(v)
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case json.Number:
		return fromNumber(v)
	case time.Time:
		return Date(v), nil
	case *time.Time:
		if v == nil {
			return Null(), nil
		}
		return Date(*v), nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", x)
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("integer %d overflows int64", u)
	}
	return Integer(int64(u)), nil
}

// fromNumber treats numbers written with a fraction or exponent as floats.
func fromNumber(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Integer(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Int returns the integer payload.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInteger }

// Float64 returns the float payload.
func (v Value) Float64() (float64, bool) { return v.f, v.kind == KindFloat }

// Boolean returns the boolean payload.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBoolean }

// Time returns the date payload.
func (v Value) Time() (time.Time, bool) { return v.t, v.kind == KindDate }

// AsDate interprets the value as a date. A native date, a string in
// DateLayout, or a number of milliseconds since the epoch are accepted.
func (v Value) AsDate() (time.Time, bool) {
	switch v.kind {
	case KindDate:
		return v.t, true
	case KindString:
		t, err := time.Parse(DateLayout, v.s)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case KindInteger:
		return time.UnixMilli(v.i).UTC(), true
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(v.f)).UTC(), true
	}
	return time.Time{}, false
}

// Text renders the value for display in a notebook custom field.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindDate:
		return v.t.UTC().Format(DateLayout)
	}
	return ""
}

// Interface returns the payload as a plain Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindBoolean:
		return v.b
	case KindDate:
		return v.t
	}
	return nil
}

// MarshalJSON writes floats with a fraction so they decode back as floats.
// Dates are written in DateLayout.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("unsupported float value %v", v.f)
		}
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return []byte(s), nil
	case KindDate:
		return json.Marshal(v.t.UTC().Format(DateLayout))
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes scalars only; objects and arrays are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	val, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}
