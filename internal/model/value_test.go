package model

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestEncode(t *testing.T) {
	for _, tc := range []struct {
		name     string
		value    Value
		wantText string
		wantType ValueType
	}{
		{"string", StringValue("hello"), "hello", TypeString},
		{"empty string", StringValue(""), "", TypeString},
		{"zero value", Value{}, "", TypeString},
		{"true", BoolValue(true), "true", TypeBoolean},
		{"false", BoolValue(false), "false", TypeBoolean},
		{"integer", IntValue(30), "30", TypeInteger},
		{"negative integer", IntValue(-7), "-7", TypeInteger},
		{"max integer", IntValue(math.MaxInt64), "9223372036854775807", TypeInteger},
		{"float", FloatValue(0.1), "0.1", TypeFloat},
		{"integral float", FloatValue(45), "45", TypeFloat},
		{"large float", FloatValue(1e21), "1e+21", TypeFloat},
	} {
		t.Run(tc.name, func(t *testing.T) {
			text, typ := tc.value.Encode()
			if text != tc.wantText || typ != tc.wantType {
				t.Errorf("Encode() = (%q, %q), want (%q, %q)", text, typ, tc.wantText, tc.wantType)
			}
		})
	}
}

func TestDecodeValue_Errors(t *testing.T) {
	for _, tc := range []struct {
		typ  ValueType
		text string
	}{
		{TypeBoolean, "yes"},
		{TypeBoolean, "1"},
		{TypeBoolean, "TRUE"},
		{TypeInteger, "1.5"},
		{TypeInteger, "abc"},
		{TypeInteger, "99999999999999999999"},
		{TypeFloat, "one"},
		{TypeFloat, ""},
		{ValueType("number"), "1"},
	} {
		_, err := DecodeValue(tc.typ, tc.text)
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Errorf("DecodeValue(%q, %q) error = %v, want *DecodeError", tc.typ, tc.text, err)
			continue
		}
		if de.Type != tc.typ || de.Text != tc.text {
			t.Errorf("DecodeError = {%q %q}, want {%q %q}", de.Type, de.Text, tc.typ, tc.text)
		}
	}
}

func TestDecodeValue_NoCoercion(t *testing.T) {
	// "30" under a string tag stays a string.
	v, err := DecodeValue(TypeString, "30")
	if err != nil {
		t.Fatal(err)
	}
	if v.Type() != TypeString || v.Str() != "30" {
		t.Errorf("DecodeValue(string, 30) = %v (%s)", v, v.Type())
	}
	v, err = DecodeValue(TypeFloat, "30")
	if err != nil {
		t.Fatal(err)
	}
	if v.Type() != TypeFloat || v.Float() != 30 {
		t.Errorf("DecodeValue(float, 30) = %v (%s)", v, v.Type())
	}
}

func valueGen() *rapid.Generator[Value] {
	return rapid.OneOf(
		rapid.Map(rapid.String(), StringValue),
		rapid.Map(rapid.Bool(), BoolValue),
		rapid.Map(rapid.Int64(), IntValue),
		rapid.Map(rapid.Float64(), FloatValue),
	)
}

func TestValue_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := valueGen().Draw(t, "value")
		text, typ := v.Encode()
		got, err := DecodeValue(typ, text)
		if err != nil {
			t.Fatalf("DecodeValue(%q, %q): %v", typ, text, err)
		}
		if !got.Equal(v) {
			t.Fatalf("round trip %v (%s) -> %q -> %v (%s)", v, v.Type(), text, got, got.Type())
		}
	})
}

func TestValue_JSONRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := valueGen().Filter(func(v Value) bool {
			return v.Type() != TypeFloat || (!math.IsNaN(v.Float()) && !math.IsInf(v.Float(), 0))
		}).Draw(t, "value")
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var got Value
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if !got.Equal(v) {
			t.Fatalf("JSON round trip %v (%s) -> %s -> %v (%s)", v, v.Type(), data, got, got.Type())
		}
	})
}

func TestValue_UnmarshalJSON(t *testing.T) {
	for _, tc := range []struct {
		input   string
		want    Value
		wantErr bool
	}{
		{`"abc"`, StringValue("abc"), false},
		{`true`, BoolValue(true), false},
		{`45`, IntValue(45), false},
		{`45.0`, FloatValue(45), false},
		{`1e3`, FloatValue(1000), false},
		{`-0.25`, FloatValue(-0.25), false},
		{`18446744073709551616`, FloatValue(18446744073709551616), false},
		{`null`, Value{}, true},
		{`[1]`, Value{}, true},
		{`{"a":1}`, Value{}, true},
	} {
		var got Value
		err := json.Unmarshal([]byte(tc.input), &got)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Unmarshal(%s) = %v, want error", tc.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unmarshal(%s): %v", tc.input, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("Unmarshal(%s) = %v (%s), want %v (%s)", tc.input, got, got.Type(), tc.want, tc.want.Type())
		}
	}
}

func TestValue_MarshalJSON_NonFinite(t *testing.T) {
	if _, err := json.Marshal(FloatValue(math.NaN())); err == nil {
		t.Error("expected error marshaling NaN")
	}
}

func TestValueType_IsValid(t *testing.T) {
	for _, typ := range []ValueType{TypeString, TypeBoolean, TypeInteger, TypeFloat} {
		if !typ.IsValid() {
			t.Errorf("%q.IsValid() = false", typ)
		}
	}
	if ValueType("number").IsValid() {
		t.Error(`"number".IsValid() = true`)
	}
}
