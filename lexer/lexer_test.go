package lexer

import "testing"

type tokenExpectation struct {
	Type TokenType
	Str  string
	Num  float64
}

func collect(t *testing.T, src string) []Token {
	t.Helper()
	l := New(src)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			break
		}
	}
	return toks
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tokenExpectation
	}{
		{"integer", "42", []tokenExpectation{{Type: NUMBER, Num: 42}, {Type: EOF}}},
		{"float", "3.14", []tokenExpectation{{Type: NUMBER, Num: 3.14}, {Type: EOF}}},
		{"hex", "0xFF", []tokenExpectation{{Type: NUMBER, Num: 255}, {Type: EOF}}},
		{"octal", "0o17", []tokenExpectation{{Type: NUMBER, Num: 15}, {Type: EOF}}},
		{"binary", "0b101", []tokenExpectation{{Type: NUMBER, Num: 5}, {Type: EOF}}},
		{"exponent", "1e3", []tokenExpectation{{Type: NUMBER, Num: 1000}, {Type: EOF}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			toks := collect(t, tc.input)
			if len(toks) != len(tc.expected) {
				t.Fatalf("got %d tokens, want %d", len(toks), len(tc.expected))
			}
			for i, want := range tc.expected {
				if toks[i].Type != want.Type || toks[i].Num != want.Num {
					t.Errorf("token %d: got %+v, want %+v", i, toks[i], want)
				}
			}
		})
	}
}

func TestStringsAndEscapes(t *testing.T) {
	toks := collect(t, `"a\nb\tc"`)
	if toks[0].Type != STRING || toks[0].Str != "a\nb\tc" {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"abc`)
	if _, err := l.Next(); err == nil {
		t.Fatal("expected unterminated-string error")
	}
}

func TestKeywordsVsIdentifiers(t *testing.T) {
	toks := collect(t, "var xyz = function")
	want := []TokenType{VAR, IDENTIFIER, ASSIGN, FUNCTION, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
}

func TestOperators(t *testing.T) {
	toks := collect(t, "=== !== >>> <<= =>")
	want := []TokenType{EQEQ, NENE, URSHIFT, LSHIFT_ASSIGN, ARROW, EOF}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
}

func TestComments(t *testing.T) {
	toks := collect(t, "1 // trailing\n+ /* block */ 2")
	want := []TokenType{NUMBER, PLUS, NUMBER, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens", len(toks))
	}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
}

func TestReadRegexLiteral(t *testing.T) {
	l := New(`/ab\/c[d/]e/gi`)
	slash, err := l.Next()
	if err != nil || slash.Type != SLASH {
		t.Fatalf("expected SLASH token first, got %+v err=%v", slash, err)
	}
	tok, err := l.ReadRegexLiteral()
	if err != nil {
		t.Fatalf("ReadRegexLiteral: %v", err)
	}
	if tok.Type != REGEX {
		t.Fatalf("got %+v", tok)
	}
	if tok.Regex.Pattern != `ab\/c[d/]e` {
		t.Errorf("pattern = %q", tok.Regex.Pattern)
	}
	if tok.Regex.Flags != "gi" {
		t.Errorf("flags = %q", tok.Regex.Flags)
	}
}
