package value

import (
	"math"
	"strconv"
	"strings"
)

// ToBoolean implements, grounded on
// to_boolean: falsy primitives are
// undefined, null, false, 0, NaN, and "" — every object (including arrays,
// functions, and regexps) is truthy, there is no "empty array is falsy"
// exception as in some scripting languages.
func ToBoolean(v Value) bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindString:
		return v.str != ""
	default:
		return true
	}
}

// ToNumber implements.
func ToNumber(v Value) float64 {
	switch v.kind {
	case KindUndefined:
		return math.NaN()
	case KindNull:
		return 0
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindNumber:
		return v.num
	case KindString:
		return stringToNumber(v.str)
	default:
		return ToNumber(ToPrimitive(v, "number"))
	}
}

// stringToNumber mirrors values.py's to_number string branch: trims
// whitespace, accepts 0x/0o/0b integer literals, empty string is 0,
// "Infinity"/"-Infinity" are recognized, anything else unparseable is NaN.
func stringToNumber(s string) float64 {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0
	}
	switch t {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	lower := strings.ToLower(t)
	neg := false
	body := lower
	if strings.HasPrefix(body, "+") {
		body = body[1:]
	} else if strings.HasPrefix(body, "-") {
		neg = true
		body = body[1:]
	}
	var base int
	switch {
	case strings.HasPrefix(body, "0x"):
		base = 16
		body = body[2:]
	case strings.HasPrefix(body, "0o"):
		base = 8
		body = body[2:]
	case strings.HasPrefix(body, "0b"):
		base = 2
		body = body[2:]
	}
	if base != 0 {
		if body == "" {
			return math.NaN()
		}
		n, err := strconv.ParseUint(body, base, 64)
		if err != nil {
			return math.NaN()
		}
		f := float64(n)
		if neg {
			f = -f
		}
		return f
	}
	n, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

// ToString implements, grounded on
// values.py's to_string: -0 prints as "0", Infinity/-Infinity/NaN print by
// name, finite floats use the shortest round-tripping representation.
func ToString(v Value) string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return numberToString(v.num)
	case KindString:
		return v.str
	default:
		return ToString(ToPrimitive(v, "string"))
	}
}

func numberToString(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0" // covers -0 deliberately: ToString(-0) is "0"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// ToPrimitive implements the object branch of.
// The interpreter's method dispatch (valueOf/toString) lives in the vm
// package; value stays self-contained by handling only the built-in default
// conversions for arrays (join with ",") and every other object kind
// ("[object Object]"-style fallback), which is what guest code observes
// unless it defines its own toString/valueOf — those richer paths are
// applied by the VM before falling back here.
func ToPrimitive(v Value, hint string) Value {
	if v.kind != KindObject || v.obj == nil {
		return v
	}
	if v.obj.Array != nil {
		return String(arrayToPrimitiveString(v.obj.Array))
	}
	if v.obj.Function != nil {
		return String("function " + v.obj.Function.Name + " { [native code] }")
	}
	if v.obj.RegExp != nil {
		return String("/" + v.obj.RegExp.Source + "/" + v.obj.RegExp.FlagsString())
	}
	return String("[object Object]")
}

func arrayToPrimitiveString(a *ArrayData) string {
	parts := make([]string, len(a.Elements))
	for i, el := range a.Elements {
		if el.IsNullish() {
			parts[i] = ""
		} else {
			parts[i] = ToString(el)
		}
	}
	return strings.Join(parts, ",")
}

// to32BitUnsigned reduces n's truncated integer part into [0, 2^32) entirely
// in the float domain, so magnitudes outside ±2^63 (where a float64->int64
// conversion is implementation-defined) still get the modulo-2^32 reduction
// the spec requires rather than an undefined round-trip through int64.
func to32BitUnsigned(n float64) uint32 {
	trunc := math.Trunc(n)
	m := math.Mod(trunc, 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return uint32(m)
}

// ToInt32 implements, grounded on values.py's int32
// wraparound behavior (modulo 2^32 into the signed range).
func ToInt32(v Value) int32 {
	n := ToNumber(v)
	if math.IsNaN(n) || math.IsInf(n, 0) || n == 0 {
		return 0
	}
	return int32(to32BitUnsigned(n))
}

// ToUint32 implements.
func ToUint32(v Value) uint32 {
	n := ToNumber(v)
	if math.IsNaN(n) || math.IsInf(n, 0) || n == 0 {
		return 0
	}
	return to32BitUnsigned(n)
}
