package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/simonw/micro-javascript-sub000/bytecode"
	"github.com/simonw/micro-javascript-sub000/parser"
)

func compileSource(t *testing.T, src string) *bytecode.CompiledFunction {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	fn, err := Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return fn
}

// firstNestedFunction finds the first *bytecode.CompiledFunction in fn's
// constant pool — the nested closure a test source declares.
func firstNestedFunction(t *testing.T, fn *bytecode.CompiledFunction) *bytecode.CompiledFunction {
	t.Helper()
	for _, c := range fn.Constants {
		if nested, ok := c.(*bytecode.CompiledFunction); ok {
			return nested
		}
	}
	t.Fatal("no nested compiled function found in constant pool")
	return nil
}

// TestScopeAnalysisCellAndFreeVars exercises spec.md §4.3: a local captured
// by an inner function must be promoted to a cell var on the outer function,
// and the inner function must list it as a free var.
func TestScopeAnalysisCellAndFreeVars(t *testing.T) {
	fn := compileSource(t, `
		function mk() {
			var counter = 0;
			return function increment() { return ++counter; };
		}
	`)
	outer := firstNestedFunction(t, fn) // mk
	if slot := outer.CellSlot("counter"); slot < 0 {
		t.Fatalf("expected %q promoted to a cell var in mk, got CellVars=%v", "counter", outer.CellVars)
	}

	inner := firstNestedFunction(t, outer) // increment
	if slot := inner.FreeSlot("counter"); slot < 0 {
		t.Fatalf("expected %q listed as a free var in increment, got FreeVars=%v", "counter", inner.FreeVars)
	}
	// increment never declares counter itself.
	if slot := inner.LocalSlot("counter"); slot >= 0 {
		t.Fatalf("increment should not have its own local slot for counter, got slot %d", slot)
	}
}

// TestScopeAnalysisUncapturedLocalStaysPlain confirms a local that no inner
// function references is never promoted to a cell — the common case should
// stay a plain local slot.
func TestScopeAnalysisUncapturedLocalStaysPlain(t *testing.T) {
	fn := compileSource(t, `
		function f() {
			var x = 1;
			var y = 2;
			return x + y;
		}
	`)
	outer := firstNestedFunction(t, fn)
	if diff := cmp.Diff([]string(nil), outer.CellVars, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("expected no cell vars (-want +got):\n%s", diff)
	}
	if slot := outer.LocalSlot("x"); slot < 0 {
		t.Fatalf("expected x to be a plain local")
	}
}

// TestVarHoisting confirms a var declared inside a nested block is hoisted
// to the enclosing function's locals table, not scoped to the block.
func TestVarHoisting(t *testing.T) {
	fn := compileSource(t, `
		function f() {
			if (true) {
				var hoisted = 1;
			}
			return hoisted;
		}
	`)
	outer := firstNestedFunction(t, fn)
	if slot := outer.LocalSlot("hoisted"); slot < 0 {
		t.Fatalf("expected hoisted to be a function-level local, got Locals=%v", outer.Locals)
	}
}

// TestTransitiveFreeVarForwarding confirms a free var needed by a
// doubly-nested function is forwarded through the middle function's own
// FreeVars even though the middle function never references it itself.
func TestTransitiveFreeVarForwarding(t *testing.T) {
	fn := compileSource(t, `
		function outer() {
			var shared = 0;
			function middle() {
				function innermost() { return shared; }
				return innermost;
			}
			return middle;
		}
	`)
	outerFn := firstNestedFunction(t, fn)
	if slot := outerFn.CellSlot("shared"); slot < 0 {
		t.Fatalf("expected shared promoted to a cell in outer, got CellVars=%v", outerFn.CellVars)
	}

	var middleFn *bytecode.CompiledFunction
	for _, c := range outerFn.Constants {
		if nested, ok := c.(*bytecode.CompiledFunction); ok && nested.Name == "middle" {
			middleFn = nested
		}
	}
	if middleFn == nil {
		t.Fatal("middle function not found in outer's constant pool")
	}
	if slot := middleFn.FreeSlot("shared"); slot < 0 {
		t.Fatalf("expected middle to forward shared as a free var, got FreeVars=%v", middleFn.FreeVars)
	}
}

// TestObjectLiteralNonComputedKeyDoesNotCaptureOuterVar confirms a
// non-computed property key (e.g. the `foo` in `{foo: 1}`) is never treated
// as an identifier reference by the capture analysis: an outer local sharing
// the key's name must stay a plain local even though an inner function's
// object literal uses that name as a key, not as a read of the outer
// variable.
func TestObjectLiteralNonComputedKeyDoesNotCaptureOuterVar(t *testing.T) {
	fn := compileSource(t, `
		function f() {
			var foo = 1;
			return function () { return { foo: 2 }; };
		}
	`)
	outer := firstNestedFunction(t, fn)
	if diff := cmp.Diff([]string(nil), outer.CellVars, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("expected foo to stay a plain local, not promoted to a cell (-want +got):\n%s", diff)
	}
	if slot := outer.LocalSlot("foo"); slot < 0 {
		t.Fatalf("expected foo to remain a plain local")
	}
}
