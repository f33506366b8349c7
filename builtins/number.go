package builtins

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/simonw/micro-javascript-sub000/value"
	"github.com/simonw/micro-javascript-sub000/vm"
)

func thisNumber(realm *vm.Realm, this value.Value, method string) (float64, error) {
	if !this.IsNumber() {
		return 0, realm.TypeError("Number.prototype.%s called on non-number", method)
	}
	return this.Num(), nil
}

func installNumberProto(realm *vm.Realm) {
	p := realm.NumberProto

	method(p, "toString", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		n, err := thisNumber(realm, this, "toString")
		if err != nil {
			return value.Undefined, err
		}
		radix := 10
		if len(args) > 0 && !args[0].IsUndefined() {
			radix = int(value.ToNumber(args[0]))
		}
		if radix < 2 || radix > 36 {
			return value.Undefined, realm.RangeError("toString() radix must be between 2 and 36")
		}
		if radix == 10 {
			return value.String(value.ToString(this)), nil
		}
		return value.String(numberToBase(n, radix)), nil
	}, realm)

	method(p, "valueOf", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		n, err := thisNumber(realm, this, "valueOf")
		if err != nil {
			return value.Undefined, err
		}
		return value.Number(n), nil
	}, realm)

	method(p, "toFixed", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		n, err := thisNumber(realm, this, "toFixed")
		if err != nil {
			return value.Undefined, err
		}
		digits := 0
		if len(args) > 0 {
			digits = int(value.ToNumber(args[0]))
		}
		if digits < 0 || digits > 100 {
			return value.Undefined, realm.RangeError("toFixed() digits argument must be between 0 and 100")
		}
		return value.String(strconv.FormatFloat(n, 'f', digits, 64)), nil
	}, realm)

	method(p, "toPrecision", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		n, err := thisNumber(realm, this, "toPrecision")
		if err != nil {
			return value.Undefined, err
		}
		if len(args) == 0 || args[0].IsUndefined() {
			return value.String(value.ToString(this)), nil
		}
		prec := int(value.ToNumber(args[0]))
		return value.String(strconv.FormatFloat(n, 'g', prec, 64)), nil
	}, realm)
}

// numberToBase renders n in the given radix. strconv only formats integers
// in non-decimal bases, so the integer part goes through a manual digit
// loop and the fractional part (if any) is expanded digit by digit.
func numberToBase(n float64, radix int) string {
	if math.IsNaN(n) {
		return "NaN"
	}
	if math.IsInf(n, 1) {
		return "Infinity"
	}
	if math.IsInf(n, -1) {
		return "-Infinity"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	intPart := math.Trunc(n)
	frac := n - intPart
	digits := "0123456789abcdefghijklmnopqrstuvwxyz"
	var intStr string
	if intPart == 0 {
		intStr = "0"
	} else {
		var b strings.Builder
		ip := int64(intPart)
		var stack []byte
		for ip > 0 {
			stack = append(stack, digits[ip%int64(radix)])
			ip /= int64(radix)
		}
		for i := len(stack) - 1; i >= 0; i-- {
			b.WriteByte(stack[i])
		}
		intStr = b.String()
	}
	result := intStr
	if frac > 0 {
		var b strings.Builder
		b.WriteString(intStr)
		b.WriteByte('.')
		for i := 0; i < 20 && frac > 0; i++ {
			frac *= float64(radix)
			digit := int(frac)
			b.WriteByte(digits[digit])
			frac -= float64(digit)
		}
		result = b.String()
	}
	if neg {
		result = "-" + result
	}
	return result
}

func installBooleanProto(realm *vm.Realm) {
	p := realm.BooleanProto

	method(p, "toString", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if !this.IsBool() {
			return value.Undefined, realm.TypeError("Boolean.prototype.toString called on non-boolean")
		}
		return value.String(fmt.Sprintf("%t", this.Bool())), nil
	}, realm)

	method(p, "valueOf", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if !this.IsBool() {
			return value.Undefined, realm.TypeError("Boolean.prototype.valueOf called on non-boolean")
		}
		return this, nil
	}, realm)
}

func installGlobalFunctions(realm *vm.Realm) {
	realm.Global.SetOwn("parseInt", value.FromObject(value.NewHostFunction("parseInt",
		func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
			r := value.ToNumber(arg(args, 1))
			radix := 0
			if !math.IsNaN(r) && !math.IsInf(r, 0) {
				radix = int(r)
			}
			return value.Number(parseIntImpl(value.ToString(arg(args, 0)), radix)), nil
		}, realm.FunctionProto)))

	realm.Global.SetOwn("parseFloat", value.FromObject(value.NewHostFunction("parseFloat",
		func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
			return value.Number(parseFloatImpl(value.ToString(arg(args, 0)))), nil
		}, realm.FunctionProto)))

	realm.Global.SetOwn("isNaN", value.FromObject(value.NewHostFunction("isNaN",
		func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
			return value.Bool(math.IsNaN(value.ToNumber(arg(args, 0)))), nil
		}, realm.FunctionProto)))

	realm.Global.SetOwn("isFinite", value.FromObject(value.NewHostFunction("isFinite",
		func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
			n := value.ToNumber(arg(args, 0))
			return value.Bool(!math.IsNaN(n) && !math.IsInf(n, 0)), nil
		}, realm.FunctionProto)))

	realm.Global.SetOwn("String", value.FromObject(value.NewHostFunction("String",
		func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.String(""), nil
			}
			return value.String(value.ToString(args[0])), nil
		}, realm.FunctionProto)))

	numberCtor := value.NewHostFunction("Number",
		func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Number(0), nil
			}
			return value.Number(value.ToNumber(args[0])), nil
		}, realm.FunctionProto)
	numberCtor.SetOwn("isInteger", value.FromObject(value.NewHostFunction("isInteger",
		func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
			v := arg(args, 0)
			return value.Bool(v.IsNumber() && !math.IsNaN(v.Num()) && !math.IsInf(v.Num(), 0) && math.Trunc(v.Num()) == v.Num()), nil
		}, realm.FunctionProto)))
	numberCtor.SetOwn("isFinite", value.FromObject(value.NewHostFunction("isFinite",
		func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
			v := arg(args, 0)
			return value.Bool(v.IsNumber() && !math.IsNaN(v.Num()) && !math.IsInf(v.Num(), 0)), nil
		}, realm.FunctionProto)))
	numberCtor.SetOwn("isNaN", value.FromObject(value.NewHostFunction("isNaN",
		func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
			v := arg(args, 0)
			return value.Bool(v.IsNumber() && math.IsNaN(v.Num())), nil
		}, realm.FunctionProto)))
	numberCtor.SetOwn("MAX_SAFE_INTEGER", value.Number(9007199254740991))
	numberCtor.SetOwn("MIN_SAFE_INTEGER", value.Number(-9007199254740991))
	numberCtor.SetOwn("EPSILON", value.Number(2.220446049250313e-16))
	numberCtor.SetOwn("POSITIVE_INFINITY", value.Number(math.Inf(1)))
	numberCtor.SetOwn("NEGATIVE_INFINITY", value.Number(math.Inf(-1)))
	numberCtor.SetOwn("NaN", value.Number(math.NaN()))
	numberCtor.SetOwn("prototype", value.FromObject(realm.NumberProto))
	realm.Global.SetOwn("Number", value.FromObject(numberCtor))

	boolCtor := value.NewHostFunction("Boolean",
		func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
			return value.Bool(value.ToBoolean(arg(args, 0))), nil
		}, realm.FunctionProto)
	boolCtor.SetOwn("prototype", value.FromObject(realm.BooleanProto))
	realm.Global.SetOwn("Boolean", value.FromObject(boolCtor))
}

// parseIntImpl mirrors the global parseInt: skip leading whitespace, accept
// an optional sign, autodetect a 0x/0X prefix as base 16 when radix is 0 or
// unspecified, then consume the longest valid-digit prefix for the radix.
func parseIntImpl(s string, radix int) float64 {
	s = strings.TrimSpace(s)
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if radix == 0 {
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			radix = 16
			s = s[2:]
		} else {
			radix = 10
		}
	} else if radix == 16 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		s = s[2:]
	}
	if radix < 2 || radix > 36 {
		return math.NaN()
	}
	end := 0
	for end < len(s) {
		d := digitValue(s[end])
		if d < 0 || d >= radix {
			break
		}
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	n, err := strconv.ParseInt(s[:end], radix, 64)
	if err != nil {
		// overflow for int64: fall back to float accumulation
		var f float64
		for i := 0; i < end; i++ {
			f = f*float64(radix) + float64(digitValue(s[i]))
		}
		if neg {
			f = -f
		}
		return f
	}
	if neg {
		n = -n
	}
	return float64(n)
}

func digitValue(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'z':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'Z':
		return int(b-'A') + 10
	default:
		return -1
	}
}

func parseFloatImpl(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	seenDot, seenExp, seenDigit := false, false, false
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
			end++
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
			end++
		case (c == 'e' || c == 'E') && !seenExp && seenDigit:
			seenExp = true
			end++
			if end < len(s) && (s[end] == '+' || s[end] == '-') {
				end++
			}
		default:
			goto done
		}
	}
done:
	if !seenDigit {
		if strings.HasPrefix(s[start:], "Infinity") {
			if start > 0 && s[0] == '-' {
				return math.Inf(-1)
			}
			return math.Inf(1)
		}
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
