package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType is the type tag stored alongside a version's text value.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeBoolean ValueType = "boolean"
	TypeInteger ValueType = "integer"
	TypeFloat   ValueType = "float"
)

// String returns the string representation of the value type.
func (t ValueType) String() string {
	return string(t)
}

// IsValid checks whether the value type is a known tag.
func (t ValueType) IsValid() bool {
	switch t {
	case TypeString, TypeBoolean, TypeInteger, TypeFloat:
		return true
	}
	return false
}

// Value is a tagged scalar. The zero Value is the empty string.
type Value struct {
	typ ValueType
	s   string
	b   bool
	i   int64
	f   float64
}

// StringValue returns a string-tagged value.
func StringValue(s string) Value {
	return Value{typ: TypeString, s: s}
}

// BoolValue returns a boolean-tagged value.
func BoolValue(b bool) Value {
	return Value{typ: TypeBoolean, b: b}
}

// IntValue returns an integer-tagged value.
func IntValue(i int64) Value {
	return Value{typ: TypeInteger, i: i}
}

// FloatValue returns a float-tagged value.
func FloatValue(f float64) Value {
	return Value{typ: TypeFloat, f: f}
}

// Type returns the value's tag.
func (v Value) Type() ValueType {
	if v.typ == "" {
		return TypeString
	}
	return v.typ
}

func (v Value) Str() string { return v.s }
func (v Value) Bool() bool { return v.b }
func (v Value) Int() int64 { return v.i }
func (v Value) Float() float64 { return v.f }

// Encode renders the value to its canonical storage text and tag.
// Floats use the shortest representation that parses back to the same bits.
func (v Value) Encode() (string, ValueType) {
	switch v.Type() {
	case TypeBoolean:
		return strconv.FormatBool(v.b), TypeBoolean
	case TypeInteger:
		return strconv.FormatInt(v.i, 10), TypeInteger
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64), TypeFloat
	default:
		return v.s, TypeString
	}
}

// String returns the canonical text form.
func (v Value) String() string {
	text, _ := v.Encode()
	return text
}

// Equal reports whether two values have the same tag and payload.
// NaN floats compare equal to each other.
func (v Value) Equal(o Value) bool {
	if v.Type() != o.Type() {
		return false
	}
	switch v.Type() {
	case TypeBoolean:
		return v.b == o.b
	case TypeInteger:
		return v.i == o.i
	case TypeFloat:
		if math.IsNaN(v.f) && math.IsNaN(o.f) {
			return true
		}
		return v.f == o.f && math.Signbit(v.f) == math.Signbit(o.f)
	default:
		return v.s == o.s
	}
}

// DecodeError is returned when stored text does not parse as its tag.
type DecodeError struct {
	Type ValueType
	Text string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s value %q: %v", e.Type, e.Text, e.Err)
	}
	return fmt.Sprintf("decode %s value %q", e.Type, e.Text)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeValue parses text according to typ. The tag alone decides the
// variant; text is never sniffed.
func DecodeValue(typ ValueType, text string) (Value, error) {
	switch typ {
	case TypeString:
		return StringValue(text), nil
	case TypeBoolean:
		switch text {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
		return Value{}, &DecodeError{Type: typ, Text: text}
	case TypeInteger:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, &DecodeError{Type: typ, Text: text, Err: err}
		}
		return IntValue(i), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, &DecodeError{Type: typ, Text: text, Err: err}
		}
		return FloatValue(f), nil
	}
	return Value{}, &DecodeError{Type: typ, Text: text, Err: fmt.Errorf("unknown value type")}
}

// MarshalJSON encodes the value as a native JSON scalar. Integral floats
// keep a trailing ".0" so they decode back as floats.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type() {
	case TypeBoolean:
		return json.Marshal(v.b)
	case TypeInteger:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case TypeFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("float value %v has no JSON representation", v.f)
		}
		text := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(text, ".eE") {
			text += ".0"
		}
		return []byte(text), nil
	default:
		return json.Marshal(v.s)
	}
}

// UnmarshalJSON accepts a JSON string, boolean or number. Numbers written
// without a fraction or exponent become integers; everything else numeric
// becomes a float.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueFromJSON(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueFromJSON converts a decoded JSON scalar into a Value. It accepts
// json.Number and float64 for numbers.
func ValueFromJSON(raw any) (Value, error) {
	switch x := raw.(type) {
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case json.Number:
		text := x.String()
		if !strings.ContainsAny(text, ".eE") {
			if i, err := strconv.ParseInt(text, 10, 64); err == nil {
				return IntValue(i), nil
			}
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", text, err)
		}
		return FloatValue(f), nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return IntValue(int64(x)), nil
		}
		return FloatValue(x), nil
	case nil:
		return Value{}, fmt.Errorf("value must not be null")
	}
	return Value{}, fmt.Errorf("value must be a string, boolean or number, got %T", raw)
}

// MarshalYAML encodes the value as its native scalar.
func (v Value) MarshalYAML() (any, error) {
	return v.Native(), nil
}

// Native returns the value as a plain Go scalar.
func (v Value) Native() any {
	switch v.Type() {
	case TypeBoolean:
		return v.b
	case TypeInteger:
		return v.i
	case TypeFloat:
		return v.f
	default:
		return v.s
	}
}
