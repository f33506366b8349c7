package builtins

import (
	"strings"

	"github.com/simonw/micro-javascript-sub000/jsregexp"
	"github.com/simonw/micro-javascript-sub000/value"
	"github.com/simonw/micro-javascript-sub000/vm"
)

// compiledRegexp parses and compiles a regexp Value's pattern/flags on first
// use, mirroring vm/exec.go's BUILD_REGEX lazy-compile-and-cache path so a
// RegExp built by String#split/match/replace and one built by a /.../ literal
// behave identically: compiled once, reused across execs.
func compiledRegexp(v value.Value) (*jsregexp.Program, error) {
	data := v.Object().RegExp
	if data.Program != nil {
		return data.Program, nil
	}
	node, numCaptures, err := jsregexp.Parse(data.Source)
	if err != nil {
		return nil, err
	}
	prog, err := jsregexp.Compile(node, numCaptures, data.Flags)
	if err != nil {
		return nil, err
	}
	data.Program = prog
	return prog, nil
}

func newRegExpValue(realm *vm.Realm, source, flagStr string) value.Value {
	flags, _ := jsregexp.ParseFlags(flagStr)
	return value.FromObject(value.NewRegExp(source, flags, nil, realm.RegExpProto))
}

func installRegExpProto(realm *vm.Realm) {
	p := realm.RegExpProto

	method(p, "test", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if !this.IsRegExp() {
			return value.Undefined, realm.TypeError("RegExp.prototype.test called on non-regexp")
		}
		s := value.ToString(arg(args, 0))
		prog, err := compiledRegexp(this)
		if err != nil {
			return value.Undefined, realm.TypeError("invalid regular expression: %s", err)
		}
		data := this.Object().RegExp
		start := 0
		if data.Flags.Global || data.Flags.Sticky {
			start = data.LastIndex
		}
		runes := []rune(s)
		if start > len(runes) {
			data.LastIndex = 0
			return value.False, nil
		}
		m, err := jsregexp.NewVM(prog).Search(runes, start, data.Flags.Sticky)
		if err != nil {
			return value.Undefined, realm.TypeError("regexp execution error: %s", err)
		}
		if m == nil {
			if data.Flags.Global || data.Flags.Sticky {
				data.LastIndex = 0
			}
			return value.False, nil
		}
		if data.Flags.Global || data.Flags.Sticky {
			data.LastIndex = m.Captures[1].End
		}
		return value.True, nil
	}, realm)

	method(p, "exec", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if !this.IsRegExp() {
			return value.Undefined, realm.TypeError("RegExp.prototype.exec called on non-regexp")
		}
		s := value.ToString(arg(args, 0))
		return regexpExec(realm, this, s)
	}, realm)

	method(p, "toString", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if !this.IsRegExp() {
			return value.Undefined, realm.TypeError("RegExp.prototype.toString called on non-regexp")
		}
		data := this.Object().RegExp
		return value.String("/" + data.Source + "/" + data.FlagsString()), nil
	}, realm)
}

// regexpExec runs one match starting at the regexp's current lastIndex for
// global/sticky patterns, advancing lastIndex on success and resetting it
// to 0 on failure, and returns a match array with .index/.input own
// properties.
func regexpExec(realm *vm.Realm, re value.Value, s string) (value.Value, error) {
	prog, err := compiledRegexp(re)
	if err != nil {
		return value.Undefined, realm.TypeError("invalid regular expression: %s", err)
	}
	data := re.Object().RegExp
	start := 0
	if data.Flags.Global || data.Flags.Sticky {
		start = data.LastIndex
	}
	runes := []rune(s)
	if start < 0 || start > len(runes) {
		data.LastIndex = 0
		return value.Null, nil
	}
	m, err := jsregexp.NewVM(prog).Search(runes, start, data.Flags.Sticky)
	if err != nil {
		return value.Undefined, realm.TypeError("regexp execution error: %s", err)
	}
	if m == nil {
		if data.Flags.Global || data.Flags.Sticky {
			data.LastIndex = 0
		}
		return value.Null, nil
	}
	if data.Flags.Global || data.Flags.Sticky {
		data.LastIndex = m.Captures[1].End
	}
	return matchToArray(realm, m, runes, data.Flags.Sticky), nil
}

func matchToArray(realm *vm.Realm, m *jsregexp.Match, input []rune, sticky bool) value.Value {
	groups := numGroups(m)
	elems := make([]value.Value, groups+1)
	for i := 0; i <= groups; i++ {
		if g, ok := m.Group(i); ok {
			elems[i] = value.String(g)
		} else {
			elems[i] = value.Undefined
		}
	}
	arr := value.NewObject(realm.ArrayProto)
	arr.Array = value.NewArrayData(elems)
	arrVal := value.FromObject(arr)
	arr.SetOwn("index", value.Number(float64(m.Captures[0].Start)))
	arr.SetOwn("input", value.String(string(input)))
	return arrVal
}

func numGroups(m *jsregexp.Match) int {
	return len(m.Captures)/2 - 1
}

func installRegExpGlobal(realm *vm.Realm) {
	ctor := func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		pattern := value.ToString(arg(args, 0))
		flagStr := ""
		if len(args) > 1 {
			flagStr = value.ToString(args[1])
		}
		return newRegExpValue(realm, pattern, flagStr), nil
	}
	ctorObj := value.NewHostFunction("RegExp", ctor, realm.FunctionProto)
	ctorObj.SetOwn("prototype", value.FromObject(realm.RegExpProto))
	realm.Global.SetOwn("RegExp", value.FromObject(ctorObj))
}

// matchImpl backs String.prototype.match: non-global regexps behave like
// exec(); global regexps collect every match's whole-match text into a plain
// array with lastIndex reset to 0 afterwards.
func matchImpl(realm *vm.Realm, re value.Value, s string) (value.Value, error) {
	data := re.Object().RegExp
	if !data.Flags.Global {
		return regexpExec(realm, re, s)
	}
	prog, err := compiledRegexp(re)
	if err != nil {
		return value.Undefined, realm.TypeError("invalid regular expression: %s", err)
	}
	runes := []rune(s)
	var out []value.Value
	pos := 0
	for pos <= len(runes) {
		m, err := jsregexp.NewVM(prog).Search(runes, pos, false)
		if err != nil {
			return value.Undefined, realm.TypeError("regexp execution error: %s", err)
		}
		if m == nil {
			break
		}
		whole, _ := m.Group(0)
		out = append(out, value.String(whole))
		if m.Captures[1].End == m.Captures[0].Start {
			pos = m.Captures[1].End + 1
		} else {
			pos = m.Captures[1].End
		}
	}
	data.LastIndex = 0
	if out == nil {
		return value.Null, nil
	}
	return newArray(realm, out), nil
}

// splitByRegexp backs String.prototype.split(regexp): the pattern is found
// non-overlapping left to right; each gap between matches (plus any
// captured groups) becomes an array element.
func splitByRegexp(prog *jsregexp.Program, s string) []value.Value {
	runes := []rune(s)
	var out []value.Value
	last := 0
	pos := 0
	for pos <= len(runes) {
		m, err := jsregexp.NewVM(prog).Search(runes, pos, false)
		if err != nil || m == nil {
			break
		}
		start, end := m.Captures[0].Start, m.Captures[1].End
		if end == 0 && start == 0 && last == 0 {
			pos = 1
			continue
		}
		if start == end && start == last {
			pos = start + 1
			continue
		}
		out = append(out, value.String(string(runes[last:start])))
		groups := len(m.Captures)/2 - 1
		for i := 1; i <= groups; i++ {
			if g, ok := m.Group(i); ok {
				out = append(out, value.String(g))
			} else {
				out = append(out, value.Undefined)
			}
		}
		last = end
		if end == start {
			pos = end + 1
		} else {
			pos = end
		}
	}
	out = append(out, value.String(string(runes[last:])))
	return out
}

// replaceImpl backs both replace (first match only) and replaceAll (every
// match); string search patterns use a literal substring match, regexp
// patterns use the subengine, and a callable replacement is invoked with
// each match's captured groups.
func replaceImpl(c value.Caller, realm *vm.Realm, s string, args []value.Value, all bool) (value.Value, error) {
	if len(args) == 0 {
		return value.String(s), nil
	}
	pattern := args[0]
	replacement := arg(args, 1)

	if !pattern.IsRegExp() {
		search := value.ToString(pattern)
		return value.String(replaceLiteral(c, s, search, replacement, all)), nil
	}

	prog, err := compiledRegexp(pattern)
	if err != nil {
		return value.Undefined, realm.TypeError("invalid regular expression: %s", err)
	}
	data := pattern.Object().RegExp
	global := all || data.Flags.Global
	runes := []rune(s)
	var b strings.Builder
	pos := 0
	last := 0
	for pos <= len(runes) {
		m, serr := jsregexp.NewVM(prog).Search(runes, pos, false)
		if serr != nil || m == nil {
			break
		}
		start, end := m.Captures[0].Start, m.Captures[1].End
		b.WriteString(string(runes[last:start]))
		rep, rerr := expandReplacement(c, replacement, m, runes)
		if rerr != nil {
			return value.Undefined, rerr
		}
		b.WriteString(rep)
		last = end
		if end == start {
			pos = end + 1
		} else {
			pos = end
		}
		if !global {
			break
		}
	}
	b.WriteString(string(runes[last:]))
	return value.String(b.String()), nil
}

func expandReplacement(c value.Caller, replacement value.Value, m *jsregexp.Match, input []rune) (string, error) {
	if replacement.IsFunction() {
		groups := len(m.Captures)/2 - 1
		callArgs := make([]value.Value, 0, groups+3)
		for i := 0; i <= groups; i++ {
			if g, ok := m.Group(i); ok {
				callArgs = append(callArgs, value.String(g))
			} else {
				callArgs = append(callArgs, value.Undefined)
			}
		}
		callArgs = append(callArgs, value.Number(float64(m.Captures[0].Start)), value.String(string(input)))
		result, err := c.Call(replacement, value.Undefined, callArgs)
		if err != nil {
			return "", err
		}
		return value.ToString(result), nil
	}
	template := value.ToString(replacement)
	whole, _ := m.Group(0)
	return expandDollarTemplate(template, whole, m), nil
}

// expandDollarTemplate supports the $&/$1../$9 substitution tokens;
// unrecognized $-sequences pass through literally.
func expandDollarTemplate(template, whole string, m *jsregexp.Match) string {
	var b strings.Builder
	runes := []rune(template)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '$' && i+1 < len(runes) {
			switch {
			case runes[i+1] == '$':
				b.WriteByte('$')
				i++
				continue
			case runes[i+1] == '&':
				b.WriteString(whole)
				i++
				continue
			case runes[i+1] >= '1' && runes[i+1] <= '9':
				idx := int(runes[i+1] - '0')
				if g, ok := m.Group(idx); ok {
					b.WriteString(g)
				}
				i++
				continue
			}
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

func replaceLiteral(c value.Caller, s, search string, replacement value.Value, all bool) string {
	if replacement.IsFunction() {
		var b strings.Builder
		rest := s
		offset := 0
		for {
			idx := strings.Index(rest, search)
			if idx < 0 {
				b.WriteString(rest)
				break
			}
			b.WriteString(rest[:idx])
			result, err := c.Call(replacement, value.Undefined, []value.Value{
				value.String(search), value.Number(float64(offset + len([]rune(rest[:idx])))), value.String(s),
			})
			if err == nil {
				b.WriteString(value.ToString(result))
			}
			rest = rest[idx+len(search):]
			offset += len([]rune(rest))
			if !all {
				b.WriteString(rest)
				break
			}
			if search == "" {
				break
			}
		}
		return b.String()
	}
	rep := value.ToString(replacement)
	if all {
		return strings.ReplaceAll(s, search, rep)
	}
	return strings.Replace(s, search, rep, 1)
}
