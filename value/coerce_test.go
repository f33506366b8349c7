package value

import (
	"math"
	"testing"
)

func TestToBoolean(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"undefined", Undefined, false},
		{"null", Null, false},
		{"false", False, false},
		{"true", True, true},
		{"zero", Number(0), false},
		{"negative zero", Number(math.Copysign(0, -1)), false},
		{"nan", Number(math.NaN()), false},
		{"nonzero", Number(1), true},
		{"empty string", String(""), false},
		{"nonempty string", String("0"), true},
		{"array is truthy even when empty", FromObject(newTestArray(nil)), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ToBoolean(tc.v); got != tc.want {
				t.Errorf("ToBoolean(%v) = %v, want %v", tc.v, got, tc.want)
			}
		})
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want float64
	}{
		{"undefined is NaN", Undefined, math.NaN()},
		{"null is zero", Null, 0},
		{"true is one", True, 1},
		{"false is zero", False, 0},
		{"numeric string", String("42"), 42},
		{"hex string", String("0x1A"), 26},
		{"whitespace padded", String("  3.5  "), 3.5},
		{"empty string is zero", String(""), 0},
		{"garbage string is NaN", String("abc"), math.NaN()},
		{"infinity string", String("Infinity"), math.Inf(1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ToNumber(tc.v)
			if math.IsNaN(tc.want) {
				if !math.IsNaN(got) {
					t.Errorf("ToNumber(%v) = %v, want NaN", tc.v, got)
				}
				return
			}
			if got != tc.want {
				t.Errorf("ToNumber(%v) = %v, want %v", tc.v, got, tc.want)
			}
		})
	}
}

func TestToStringNegativeZeroAndSpecials(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Number(0), "0"},
		{Number(math.Copysign(0, -1)), "0"},
		{Number(math.NaN()), "NaN"},
		{Number(math.Inf(1)), "Infinity"},
		{Number(math.Inf(-1)), "-Infinity"},
		{Undefined, "undefined"},
		{Null, "null"},
		{True, "true"},
	}
	for _, tc := range tests {
		if got := ToString(tc.v); got != tc.want {
			t.Errorf("ToString(%v) = %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestToInt32Wraparound(t *testing.T) {
	tests := []struct {
		n    float64
		want int32
	}{
		{0, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{4294967296, 0},        // 2^32 wraps to 0
		{4294967295, -1},       // 2^32 - 1 wraps to -1
		{2147483648, -2147483648}, // 2^31 wraps to the min int32
		{1e20, 1661992960},     // magnitude beyond int64 still reduces mod 2^32
	}
	for _, tc := range tests {
		if got := ToInt32(Number(tc.n)); got != tc.want {
			t.Errorf("ToInt32(%v) = %v, want %v", tc.n, got, tc.want)
		}
	}
}

func TestArrayToPrimitiveJoinsWithComma(t *testing.T) {
	arr := newTestArray([]Value{Number(1), Undefined, String("x")})
	got := ToPrimitive(FromObject(arr), "string")
	if got.Str() != "1,,x" {
		t.Errorf("ToPrimitive(array) = %q, want %q", got.Str(), "1,,x")
	}
}

// newTestArray builds a bare array object the way the compiler's
// BUILD_ARRAY opcode does, without pulling in the vm package.
func newTestArray(elements []Value) *Object {
	o := NewObject(nil)
	o.Array = NewArrayData(elements)
	return o
}
