package jsctx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonw/micro-javascript-sub000/jsctx"
)

// TestRepresentativeScenarios exercises the end-to-end pipeline (lexer ->
// parser -> compiler -> vm, including jsregexp) against the exact
// input/output pairs called out as representative scenarios: loop
// accumulation, closure-cell sharing across invocations, array map/reduce,
// try/finally completion value, and regex capture groups.
func TestRepresentativeScenarios(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   any
	}{
		{
			"for-loop accumulation",
			`var s = 0; for (var i = 1; i <= 100; i++) s += i; s`,
			float64(5050),
		},
		{
			"closure shares a cell across calls",
			`function mk(){var c=0; return function(){return ++c;}} var f=mk(); f(); f(); f()`,
			float64(3),
		},
		{
			"array map then reduce",
			`[1,2,3].map(function(x){return x*x}).reduce(function(a,b){return a+b},0)`,
			float64(14),
		},
		{
			"throw/catch/finally completion value",
			`try { throw {m:1}; } catch(e) { e.m } finally { }`,
			float64(1),
		},
		{
			"regex capture group",
			`var re = /a(b+)c/; var m = re.exec('aabbbcx'); m[1]`,
			"bbb",
		},
		{
			"redos-shaped pattern terminates and fails to match",
			`/(a+)+b/.test('a'.repeat(30) + 'c')`,
			false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := jsctx.NewContext(nil)
			got, err := ctx.Eval(tc.source)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestFinallySideEffectObserved confirms a finally block's side effect is
// visible after a try that exits via throw, not just its completion value.
func TestFinallySideEffectObserved(t *testing.T) {
	ctx := jsctx.NewContext(nil)
	_, err := ctx.Eval(`
		var ran = false;
		try {
			try { throw 1; } finally { ran = true; }
		} catch (e) {}
		undefined;
	`)
	require.NoError(t, err)
	got, ok := ctx.Get("ran")
	require.True(t, ok)
	assert.Equal(t, true, got)
}

// TestTimeLimitNotCatchable confirms a guest try/catch cannot intercept a
// wall-clock budget breach — the error must surface to the host instead.
func TestTimeLimitNotCatchable(t *testing.T) {
	ctx := jsctx.NewContext(&jsctx.ResourceConfig{TimeLimitSecs: 0.05})
	_, err := ctx.Eval(`
		var caught = false;
		try { while (true) {} } catch (e) { caught = true; }
		caught;
	`)
	require.Error(t, err)
	var timeLimit *jsctx.TimeLimit
	assert.ErrorAs(t, err, &timeLimit)
}

// TestMemoryLimitBreaches confirms a tight memory-estimate ceiling aborts a
// guest call stack that keeps growing (unbounded recursion growing the
// frame count the estimate is weighted on) rather than letting it run
// unbounded. A tight loop that doesn't grow the stack is a TimeLimit
// concern, not MemoryLimit -- see TestTimeLimitNotCatchable.
func TestMemoryLimitBreaches(t *testing.T) {
	ctx := jsctx.NewContext(&jsctx.ResourceConfig{MemoryLimitBytes: 3000})
	_, err := ctx.Eval(`function recurse(n) { return recurse(n + 1); } recurse(0);`)
	require.Error(t, err)
	var memLimit *jsctx.MemoryLimit
	assert.ErrorAs(t, err, &memLimit)
}

// TestReferenceErrorIsCatchable confirms reading an undeclared global raises
// a guest-catchable ReferenceError, distinct from the non-catchable limit
// errors above.
func TestReferenceErrorIsCatchable(t *testing.T) {
	ctx := jsctx.NewContext(nil)
	got, err := ctx.Eval(`
		var msg = "";
		try { doesNotExist; } catch (e) { msg = e.name; }
		msg;
	`)
	require.NoError(t, err)
	assert.Equal(t, "ReferenceError", got)
}

// TestTypeErrorOnBadCall confirms calling a non-callable value raises a
// guest-catchable TypeError.
func TestTypeErrorOnBadCall(t *testing.T) {
	ctx := jsctx.NewContext(nil)
	got, err := ctx.Eval(`
		var msg = "";
		try { var x = 1; x(); } catch (e) { msg = e.name; }
		msg;
	`)
	require.NoError(t, err)
	assert.Equal(t, "TypeError", got)
}

// TestSyntaxErrorBeforeExecution confirms a malformed program never reaches
// the VM: Eval itself returns a JSSyntaxError.
func TestSyntaxErrorBeforeExecution(t *testing.T) {
	ctx := jsctx.NewContext(nil)
	_, err := ctx.Eval(`function ( { `)
	require.Error(t, err)
	var syntaxErr *jsctx.JSSyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

// TestGetSet round-trips host values through the globals map.
func TestGetSet(t *testing.T) {
	ctx := jsctx.NewContext(nil)
	require.NoError(t, ctx.Set("greeting", "hello"))
	got, ok := ctx.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "hello", got)

	result, err := ctx.Eval(`greeting + " world"`)
	require.NoError(t, err)
	assert.Equal(t, "hello world", result)
}

// TestRoundTripMarshalling checks host->guest->host for the sequence and
// mapping shapes the marshalling contract (spec.md §6) promises.
func TestRoundTripMarshalling(t *testing.T) {
	ctx := jsctx.NewContext(nil)
	require.NoError(t, ctx.Set("t", []any{1.0, "two", true, nil}))
	got, err := ctx.Eval(`t`)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, "two", true, nil}, got)

	require.NoError(t, ctx.Set("obj", map[string]any{"a": 1.0, "b": "x"}))
	got, err = ctx.Eval(`obj`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0, "b": "x"}, got)
}

// TestCallableRoundTrip confirms a guest function marshals to a host
// Callable that can be invoked with host arguments.
func TestCallableRoundTrip(t *testing.T) {
	ctx := jsctx.NewContext(nil)
	result, err := ctx.Eval(`(function(a,b){ return a + b; })`)
	require.NoError(t, err)
	callable, ok := result.(*jsctx.Callable)
	require.True(t, ok)

	sum, err := callable.Invoke(2.0, 3.0)
	require.NoError(t, err)
	assert.Equal(t, float64(5), sum)
}

// TestDeterminism confirms two evaluations of the same source against fresh
// contexts produce identical results (spec.md §8 property 1).
func TestDeterminism(t *testing.T) {
	source := `
		function fib(n) { return n < 2 ? n : fib(n-1) + fib(n-2); }
		fib(12);
	`
	a := jsctx.NewContext(nil)
	gotA, err := a.Eval(source)
	require.NoError(t, err)

	b := jsctx.NewContext(nil)
	gotB, err := b.Eval(source)
	require.NoError(t, err)

	assert.Equal(t, gotA, gotB)
}

// TestSnapshotIsStableDebugArtifact confirms Snapshot's canonical CBOR
// encoding is byte-for-byte stable across repeated calls against unchanged
// state -- with at least two globals, so a non-canonical (map-iteration-order
// dependent) encoding would have a real chance of exposing instability
// across calls instead of vacuously passing on a single-key map.
func TestSnapshotIsStableDebugArtifact(t *testing.T) {
	ctx := jsctx.NewContext(nil)
	require.NoError(t, ctx.Set("x", 1.0))
	require.NoError(t, ctx.Set("y", "hello"))
	require.NoError(t, ctx.Set("z", true))

	first, err := ctx.Snapshot()
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	for i := 0; i < 10; i++ {
		again, err := ctx.Snapshot()
		require.NoError(t, err)
		assert.Equal(t, first, again, "canonical CBOR encoding must be byte-for-byte stable across calls")
	}
}

// TestConfigFromJSON exercises the schema-validated resource config loader
// with a realistic JSON document.
func TestConfigFromJSON(t *testing.T) {
	cfg, err := jsctx.LoadResourceConfigJSON([]byte(`{"memory_limit": 500000, "time_limit": 2.5}`))
	require.NoError(t, err)
	assert.Equal(t, 500000, cfg.MemoryLimitBytes)
	assert.Equal(t, 2.5, cfg.TimeLimitSecs)

	ctx := jsctx.NewContext(cfg)
	got, err := ctx.Eval(`1 + 1`)
	require.NoError(t, err)
	assert.Equal(t, float64(2), got)
}

// TestConfigRejectsUnknownField exercises the JSON-schema
// additionalProperties:false rejection path.
func TestConfigRejectsUnknownField(t *testing.T) {
	_, err := jsctx.LoadResourceConfigJSON([]byte(`{"bogus_field": 1}`))
	require.Error(t, err)
}

// TestPollIntegrationDoesNotLeakAcrossEvals confirms a time limit on one Eval
// doesn't linger and abort an unrelated later Eval on the same Context.
func TestPollIntegrationDoesNotLeakAcrossEvals(t *testing.T) {
	ctx := jsctx.NewContext(&jsctx.ResourceConfig{TimeLimitSecs: 0.05})
	_, err := ctx.Eval(`while (true) {}`)
	require.Error(t, err)

	time.Sleep(10 * time.Millisecond)
	got, err := ctx.Eval(`1 + 1`)
	require.NoError(t, err)
	assert.Equal(t, float64(2), got)
}
