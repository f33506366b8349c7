package builtins

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/simonw/micro-javascript-sub000/value"
	"github.com/simonw/micro-javascript-sub000/vm"
)

// installJSON builds a guest-visible JSON object with stringify/parse,
// walking value.Value trees directly rather than routing through
// encoding/json: the tagged-union Value type has no natural encoding/json
// struct mapping, and JSON.stringify's own rules (undefined/function values
// drop from objects and serialize as null inside arrays, no struct tags)
// don't line up with what that package's Marshaler expects.
func installJSON(realm *vm.Realm) {
	j := value.NewObject(realm.ObjectProto)

	method(j, "stringify", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		indent := ""
		if len(args) > 2 {
			switch {
			case args[2].IsNumber():
				indent = strings.Repeat(" ", int(args[2].Num()))
			case args[2].IsString():
				indent = args[2].Str()
			}
		}
		var b strings.Builder
		ok, err := jsonStringify(&b, v, indent, "")
		if err != nil {
			return value.Undefined, err
		}
		if !ok {
			return value.Undefined, nil
		}
		return value.String(b.String()), nil
	}, realm)

	method(j, "parse", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		s := value.ToString(arg(args, 0))
		p := &jsonParser{src: s}
		p.skipSpace()
		v, err := p.parseValue(realm)
		if err != nil {
			return value.Undefined, &vm.ThrownError{Value: realm.NewError("SyntaxError", err.Error())}
		}
		p.skipSpace()
		if p.pos != len(p.src) {
			return value.Undefined, &vm.ThrownError{Value: realm.NewError("SyntaxError", "Unexpected non-whitespace character after JSON")}
		}
		return v, nil
	}, realm)

	realm.Global.SetOwn("JSON", value.FromObject(j))
}

// jsonStringify reports ok=false when v itself serializes to nothing
// (undefined, a function, or a symbol-like value) — the caller uses that to
// decide between returning undefined and the serialized string.
func jsonStringify(b *strings.Builder, v value.Value, indent, curIndent string) (bool, error) {
	switch {
	case v.IsUndefined() || v.IsFunction():
		return false, nil
	case v.IsNull():
		b.WriteString("null")
		return true, nil
	case v.IsBool():
		b.WriteString(strconv.FormatBool(v.Bool()))
		return true, nil
	case v.IsNumber():
		if value.IsNaN(v) || math.IsInf(v.Num(), 0) {
			b.WriteString("null")
		} else {
			b.WriteString(value.ToString(v))
		}
		return true, nil
	case v.IsString():
		writeJSONString(b, v.Str())
		return true, nil
	case v.IsArray():
		writeJSONArray(b, v, indent, curIndent)
		return true, nil
	case v.IsObjectLike():
		writeJSONObject(b, v, indent, curIndent)
		return true, nil
	default:
		return false, nil
	}
}

func writeJSONArray(b *strings.Builder, v value.Value, indent, curIndent string) {
	elems := v.Object().Array.Elements
	if len(elems) == 0 {
		b.WriteString("[]")
		return
	}
	nextIndent := curIndent + indent
	b.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			b.WriteByte(',')
		}
		newline(b, indent, nextIndent)
		ok, _ := jsonStringify(b, e, indent, nextIndent)
		if !ok {
			b.WriteString("null")
		}
	}
	newline(b, indent, curIndent)
	b.WriteByte(']')
}

func writeJSONObject(b *strings.Builder, v value.Value, indent, curIndent string) {
	keys := v.Object().OwnKeys()
	nextIndent := curIndent + indent
	type pair struct {
		key string
		buf string
	}
	var pairs []pair
	for _, k := range keys {
		val, _ := v.Object().GetOwn(k)
		var sub strings.Builder
		ok, _ := jsonStringify(&sub, val, indent, nextIndent)
		if ok {
			pairs = append(pairs, pair{k, sub.String()})
		}
	}
	if len(pairs) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		newline(b, indent, nextIndent)
		writeJSONString(b, p.key)
		b.WriteByte(':')
		if indent != "" {
			b.WriteByte(' ')
		}
		b.WriteString(p.buf)
	}
	newline(b, indent, curIndent)
	b.WriteByte('}')
}

func newline(b *strings.Builder, indent, curIndent string) {
	if indent != "" {
		b.WriteByte('\n')
		b.WriteString(curIndent)
	}
}

func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

// jsonParser is a minimal hand-rolled recursive-descent JSON reader; it
// builds value.Value trees directly so JSON.parse needs no intermediate
// encoding/json.Unmarshal-into-interface{} pass.
type jsonParser struct {
	src string
	pos int
}

func (p *jsonParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *jsonParser) parseValue(realm *vm.Realm) (value.Value, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return value.Undefined, fmt.Errorf("Unexpected end of JSON input")
	}
	switch c := p.peek(); {
	case c == '{':
		return p.parseObject(realm)
	case c == '[':
		return p.parseArray(realm)
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return value.Undefined, err
		}
		return value.String(s), nil
	case c == 't':
		return p.expectLiteral("true", value.True)
	case c == 'f':
		return p.expectLiteral("false", value.False)
	case c == 'n':
		return p.expectLiteral("null", value.Null)
	default:
		return p.parseNumber()
	}
}

func (p *jsonParser) expectLiteral(lit string, v value.Value) (value.Value, error) {
	if !strings.HasPrefix(p.src[p.pos:], lit) {
		return value.Undefined, fmt.Errorf("Unexpected token in JSON")
	}
	p.pos += len(lit)
	return v, nil
}

func (p *jsonParser) parseNumber() (value.Value, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	if p.pos == start {
		return value.Undefined, fmt.Errorf("Unexpected token in JSON")
	}
	n, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return value.Undefined, fmt.Errorf("Invalid number in JSON")
	}
	return value.Number(n), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (p *jsonParser) parseString() (string, error) {
	if p.peek() != '"' {
		return "", fmt.Errorf("Expected string in JSON")
	}
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '"' {
			p.pos++
			return b.String(), nil
		}
		if c == '\\' {
			p.pos++
			if p.pos >= len(p.src) {
				break
			}
			switch p.src[p.pos] {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '/':
				b.WriteByte('/')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'u':
				if p.pos+4 >= len(p.src) {
					return "", fmt.Errorf("Invalid unicode escape in JSON")
				}
				code, err := strconv.ParseUint(p.src[p.pos+1:p.pos+5], 16, 32)
				if err != nil {
					return "", fmt.Errorf("Invalid unicode escape in JSON")
				}
				var buf [utf8.UTFMax]byte
				n := utf8.EncodeRune(buf[:], rune(code))
				b.Write(buf[:n])
				p.pos += 4
			default:
				return "", fmt.Errorf("Invalid escape in JSON")
			}
			p.pos++
			continue
		}
		b.WriteByte(c)
		p.pos++
	}
	return "", fmt.Errorf("Unterminated string in JSON")
}

func (p *jsonParser) parseArray(realm *vm.Realm) (value.Value, error) {
	p.pos++ // '['
	p.skipSpace()
	var elems []value.Value
	if p.peek() == ']' {
		p.pos++
		return newArray(realm, elems), nil
	}
	for {
		v, err := p.parseValue(realm)
		if err != nil {
			return value.Undefined, err
		}
		elems = append(elems, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			continue
		case ']':
			p.pos++
			return newArray(realm, elems), nil
		default:
			return value.Undefined, fmt.Errorf("Unexpected token in JSON array")
		}
	}
}

func (p *jsonParser) parseObject(realm *vm.Realm) (value.Value, error) {
	p.pos++ // '{'
	p.skipSpace()
	o := value.NewObject(realm.ObjectProto)
	if p.peek() == '}' {
		p.pos++
		return value.FromObject(o), nil
	}
	for {
		p.skipSpace()
		key, err := p.parseString()
		if err != nil {
			return value.Undefined, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return value.Undefined, fmt.Errorf("Expected ':' in JSON object")
		}
		p.pos++
		v, err := p.parseValue(realm)
		if err != nil {
			return value.Undefined, err
		}
		o.SetOwn(key, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			continue
		case '}':
			p.pos++
			return value.FromObject(o), nil
		default:
			return value.Undefined, fmt.Errorf("Unexpected token in JSON object")
		}
	}
}
