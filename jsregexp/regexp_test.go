package jsregexp

import "testing"

func compileSrc(t *testing.T, pattern, flagStr string) *Program {
	t.Helper()
	flags, err := ParseFlags(flagStr)
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	ast, n, err := Parse(pattern)
	if err != nil {
		t.Fatalf("Parse(%q): %v", pattern, err)
	}
	prog, err := Compile(ast, n, flags)
	if err != nil {
		t.Fatalf("Compile(%q): %v", pattern, err)
	}
	prog.Source = pattern
	return prog
}

func searchStr(t *testing.T, pattern, flagStr, input string) *Match {
	t.Helper()
	prog := compileSrc(t, pattern, flagStr)
	vm := NewVM(prog)
	m, err := vm.Search([]rune(input), 0, false)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	return m
}

func TestLiteralMatch(t *testing.T) {
	m := searchStr(t, "abc", "", "xxabcyy")
	if m == nil {
		t.Fatal("expected match")
	}
	if s, _ := m.Group(0); s != "abc" {
		t.Errorf("got %q", s)
	}
}

func TestNoMatch(t *testing.T) {
	m := searchStr(t, "abc", "", "xyz")
	if m != nil {
		t.Fatalf("expected no match, got %+v", m)
	}
}

func TestGreedyStar(t *testing.T) {
	m := searchStr(t, "a*", "", "aaab")
	if m == nil {
		t.Fatal("expected match")
	}
	if s, _ := m.Group(0); s != "aaa" {
		t.Errorf("got %q", s)
	}
}

func TestLazyStar(t *testing.T) {
	m := searchStr(t, "a*?", "", "aaab")
	if m == nil {
		t.Fatal("expected match")
	}
	if s, _ := m.Group(0); s != "" {
		t.Errorf("got %q", s)
	}
}

func TestCapturingGroups(t *testing.T) {
	m := searchStr(t, `(\d+)-(\d+)`, "", "x 12-34 y")
	if m == nil {
		t.Fatal("expected match")
	}
	if g1, _ := m.Group(1); g1 != "12" {
		t.Errorf("group 1 = %q", g1)
	}
	if g2, _ := m.Group(2); g2 != "34" {
		t.Errorf("group 2 = %q", g2)
	}
}

func TestAlternation(t *testing.T) {
	m := searchStr(t, "cat|dog", "", "I have a dog")
	if m == nil {
		t.Fatal("expected match")
	}
	if s, _ := m.Group(0); s != "dog" {
		t.Errorf("got %q", s)
	}
}

func TestIgnoreCase(t *testing.T) {
	m := searchStr(t, "ABC", "i", "xxabcyy")
	if m == nil {
		t.Fatal("expected case-insensitive match")
	}
}

func TestAnchors(t *testing.T) {
	if m := searchStr(t, "^abc$", "", "abc"); m == nil {
		t.Fatal("expected anchored match")
	}
	if m := searchStr(t, "^abc$", "", "xabc"); m != nil {
		t.Fatal("expected no match for anchored pattern with prefix")
	}
}

func TestWordBoundary(t *testing.T) {
	m := searchStr(t, `\bcat\b`, "", "a cat sat")
	if m == nil {
		t.Fatal("expected match")
	}
	if s, _ := m.Group(0); s != "cat" {
		t.Errorf("got %q", s)
	}
}

func TestBackreference(t *testing.T) {
	m := searchStr(t, `(\w+) \1`, "", "hello hello world")
	if m == nil {
		t.Fatal("expected match")
	}
	if s, _ := m.Group(0); s != "hello hello" {
		t.Errorf("got %q", s)
	}
}

func TestLookahead(t *testing.T) {
	m := searchStr(t, `\d+(?=px)`, "", "width: 10px")
	if m == nil {
		t.Fatal("expected match")
	}
	if s, _ := m.Group(0); s != "10" {
		t.Errorf("got %q", s)
	}
	if m := searchStr(t, `\d+(?!px)`, "", "10px"); m != nil {
		if s, _ := m.Group(0); s == "10" {
			t.Errorf("negative lookahead should not allow full 10 match here, got %q", s)
		}
	}
}

func TestLookbehind(t *testing.T) {
	m := searchStr(t, `(?<=\$)\d+`, "", "price: $42")
	if m == nil {
		t.Fatal("expected match")
	}
	if s, _ := m.Group(0); s != "42" {
		t.Errorf("got %q", s)
	}
}

func TestZeroAdvanceGuard(t *testing.T) {
	// (a*)* over an "a"-free string must not loop forever: the body can
	// match empty, so the outer star needs the zero-advance guard.
	prog := compileSrc(t, "(a*)*", "")
	if prog.NumZeroAdv == 0 {
		t.Fatal("expected zero-advance register to be allocated for nested empty-capable quantifier")
	}
	vm := NewVM(prog)
	m, err := vm.Search([]rune("bbb"), 0, false)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if m == nil {
		t.Fatal("expected a (possibly empty) match")
	}
}

func TestStepLimitYieldsNoMatchNotError(t *testing.T) {
	// A catastrophic-backtracking-shaped pattern against a long non-matching
	// string should silently fail, not return an error.
	prog := compileSrc(t, "(a+)+b", "")
	vm := NewVM(prog)
	vm.StepLimit = 200
	input := make([]rune, 0, 40)
	for i := 0; i < 40; i++ {
		input = append(input, 'a')
	}
	m, err := vm.Search(input, 0, true)
	if err != nil {
		t.Fatalf("expected silent no-match, got error: %v", err)
	}
	if m != nil {
		t.Fatalf("expected no match under a tight step limit, got %+v", m)
	}
}
