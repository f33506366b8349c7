package builtins

import (
	"math"
	"strings"

	"github.com/simonw/micro-javascript-sub000/value"
	"github.com/simonw/micro-javascript-sub000/vm"
)

// thisString coerces this the way String.prototype methods do: primitive
// strings auto-box for method dispatch, but there is no boxed String object
// in this dialect, so the method simply requires a string primitive.
func thisString(realm *vm.Realm, this value.Value, method string) (string, error) {
	if !this.IsString() {
		return "", realm.TypeError("String.prototype.%s called on non-string", method)
	}
	return this.Str(), nil
}

func installStringProto(realm *vm.Realm) {
	p := realm.StringProto

	method(p, "charAt", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "charAt")
		if err != nil {
			return value.Undefined, err
		}
		runes := []rune(s)
		i := int(value.ToNumber(arg(args, 0)))
		if i < 0 || i >= len(runes) {
			return value.String(""), nil
		}
		return value.String(string(runes[i])), nil
	}, realm)

	method(p, "charCodeAt", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "charCodeAt")
		if err != nil {
			return value.Undefined, err
		}
		runes := []rune(s)
		i := int(value.ToNumber(arg(args, 0)))
		if i < 0 || i >= len(runes) {
			return value.Number(math.NaN()), nil
		}
		return value.Number(float64(runes[i])), nil
	}, realm)

	method(p, "indexOf", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "indexOf")
		if err != nil {
			return value.Undefined, err
		}
		search := value.ToString(arg(args, 0))
		start := 0
		if len(args) > 1 {
			start = clampIndex(value.ToNumber(args[1]), len([]rune(s)))
		}
		runes := []rune(s)
		if start > len(runes) {
			return value.Number(-1), nil
		}
		idx := strings.Index(string(runes[start:]), search)
		if idx < 0 {
			return value.Number(-1), nil
		}
		return value.Number(float64(start + len([]rune(string(runes[start:])[:idx])))), nil
	}, realm)

	method(p, "lastIndexOf", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "lastIndexOf")
		if err != nil {
			return value.Undefined, err
		}
		search := value.ToString(arg(args, 0))
		idx := strings.LastIndex(s, search)
		if idx < 0 {
			return value.Number(-1), nil
		}
		return value.Number(float64(len([]rune(s[:idx])))), nil
	}, realm)

	method(p, "includes", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "includes")
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(strings.Contains(s, value.ToString(arg(args, 0)))), nil
	}, realm)

	method(p, "startsWith", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "startsWith")
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(strings.HasPrefix(s, value.ToString(arg(args, 0)))), nil
	}, realm)

	method(p, "endsWith", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "endsWith")
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(strings.HasSuffix(s, value.ToString(arg(args, 0)))), nil
	}, realm)

	method(p, "slice", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "slice")
		if err != nil {
			return value.Undefined, err
		}
		runes := []rune(s)
		n := len(runes)
		start, end := 0, n
		if len(args) > 0 {
			start = clampIndex(value.ToNumber(args[0]), n)
		}
		if len(args) > 1 {
			end = clampIndex(value.ToNumber(args[1]), n)
		}
		if start > end {
			start = end
		}
		return value.String(string(runes[start:end])), nil
	}, realm)

	method(p, "substring", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "substring")
		if err != nil {
			return value.Undefined, err
		}
		runes := []rune(s)
		n := len(runes)
		start, end := 0, n
		if len(args) > 0 {
			start = clampNonNeg(value.ToNumber(args[0]), n)
		}
		if len(args) > 1 {
			end = clampNonNeg(value.ToNumber(args[1]), n)
		}
		if start > end {
			start, end = end, start
		}
		return value.String(string(runes[start:end])), nil
	}, realm)

	method(p, "toUpperCase", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "toUpperCase")
		if err != nil {
			return value.Undefined, err
		}
		return value.String(strings.ToUpper(s)), nil
	}, realm)

	method(p, "toLowerCase", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "toLowerCase")
		if err != nil {
			return value.Undefined, err
		}
		return value.String(strings.ToLower(s)), nil
	}, realm)

	method(p, "trim", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "trim")
		if err != nil {
			return value.Undefined, err
		}
		return value.String(strings.TrimSpace(s)), nil
	}, realm)

	method(p, "split", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "split")
		if err != nil {
			return value.Undefined, err
		}
		if len(args) == 0 || args[0].IsUndefined() {
			return newArray(realm, []value.Value{value.String(s)}), nil
		}
		if args[0].IsRegExp() {
			prog, rerr := compiledRegexp(args[0])
			if rerr != nil {
				return value.Undefined, rerr
			}
			return newArray(realm, splitByRegexp(prog, s)), nil
		}
		sep := value.ToString(args[0])
		var parts []string
		if sep == "" {
			for _, r := range s {
				parts = append(parts, string(r))
			}
		} else {
			parts = strings.Split(s, sep)
		}
		out := make([]value.Value, len(parts))
		for i, p := range parts {
			out[i] = value.String(p)
		}
		return newArray(realm, out), nil
	}, realm)

	method(p, "replace", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "replace")
		if err != nil {
			return value.Undefined, err
		}
		return replaceImpl(c, realm, s, args, false)
	}, realm)

	method(p, "replaceAll", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "replaceAll")
		if err != nil {
			return value.Undefined, err
		}
		return replaceImpl(c, realm, s, args, true)
	}, realm)

	method(p, "match", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "match")
		if err != nil {
			return value.Undefined, err
		}
		re := arg(args, 0)
		if !re.IsRegExp() {
			re = newRegExpValue(realm, value.ToString(re), "")
		}
		return matchImpl(realm, re, s)
	}, realm)

	method(p, "repeat", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "repeat")
		if err != nil {
			return value.Undefined, err
		}
		n := int(value.ToNumber(arg(args, 0)))
		if n < 0 {
			return value.Undefined, realm.RangeError("Invalid count value")
		}
		return value.String(strings.Repeat(s, n)), nil
	}, realm)

	method(p, "concat", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "concat")
		if err != nil {
			return value.Undefined, err
		}
		var b strings.Builder
		b.WriteString(s)
		for _, a := range args {
			b.WriteString(value.ToString(a))
		}
		return value.String(b.String()), nil
	}, realm)

	method(p, "padStart", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "padStart")
		if err != nil {
			return value.Undefined, err
		}
		return value.String(pad(s, args, true)), nil
	}, realm)

	method(p, "padEnd", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s, err := thisString(realm, this, "padEnd")
		if err != nil {
			return value.Undefined, err
		}
		return value.String(pad(s, args, false)), nil
	}, realm)

	method(p, "toString", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		return thisStringValue(realm, this)
	}, realm)

	method(p, "valueOf", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		return thisStringValue(realm, this)
	}, realm)
}

func thisStringValue(realm *vm.Realm, this value.Value) (value.Value, error) {
	if !this.IsString() {
		return value.Undefined, realm.TypeError("String.prototype.toString called on non-string")
	}
	return this, nil
}

func clampNonNeg(n float64, length int) int {
	i := int(n)
	if i < 0 {
		i = 0
	}
	if i > length {
		i = length
	}
	return i
}

func pad(s string, args []value.Value, start bool) string {
	target := int(value.ToNumber(arg(args, 0)))
	filler := " "
	if len(args) > 1 {
		filler = value.ToString(args[1])
	}
	runes := []rune(s)
	if len(runes) >= target || filler == "" {
		return s
	}
	need := target - len(runes)
	fillRunes := []rune(strings.Repeat(filler, need/len([]rune(filler))+1))[:need]
	if start {
		return string(fillRunes) + s
	}
	return s + string(fillRunes)
}
