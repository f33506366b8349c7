package jsctx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonw/micro-javascript-sub000/jsctx"
)

// eval is a small helper shared across this file's scenario tests.
func eval(t *testing.T, src string) any {
	t.Helper()
	ctx := jsctx.NewContext(nil)
	got, err := ctx.Eval(src)
	require.NoError(t, err)
	return got
}

func TestLabeledBreakAndContinue(t *testing.T) {
	got := eval(t, `
		var out = [];
		outer:
		for (var i = 0; i < 3; i++) {
			for (var j = 0; j < 3; j++) {
				if (j === 1) continue outer;
				if (i === 2) break outer;
				out.push(i * 10 + j);
			}
		}
		out.join(",");
	`)
	assert.Equal(t, "0,10", got)
}

func TestSwitchFallthroughAndDiscriminantPop(t *testing.T) {
	got := eval(t, `
		function classify(n) {
			var label;
			switch (n) {
				case 1:
				case 2:
					label = "small";
					break;
				case 3:
					label = "three";
					break;
				default:
					label = "other";
			}
			return label;
		}
		[classify(1), classify(2), classify(3), classify(9)].join(",");
	`)
	assert.Equal(t, "small,small,three,other", got)
}

func TestArrayOutOfRangeIndexWriteThrows(t *testing.T) {
	got := eval(t, `
		var msg = "";
		var a = [1,2,3];
		try { a["1.5"] = "x"; } catch (e) { msg = e.name; }
		msg;
	`)
	assert.Equal(t, "TypeError", got)
}

func TestArrayLengthTruncateAndPad(t *testing.T) {
	got := eval(t, `
		var a = [1,2,3,4,5];
		a.length = 2;
		var b = a.length;
		a.length = 4;
		[b, a.length, a[3]].join(",");
	`)
	assert.Equal(t, "2,4,undefined", got)
}

func TestGetterSetterOnObjectLiteral(t *testing.T) {
	got := eval(t, `
		var log = [];
		var o = {
			_v: 1,
			get v() { return this._v * 2; },
			set v(x) { log.push(x); this._v = x; },
		};
		var before = o.v;
		o.v = 10;
		[before, o.v, log.join(",")].join("|");
	`)
	assert.Equal(t, "2|20|10", got)
}

func TestPrototypeChainAndInstanceof(t *testing.T) {
	got := eval(t, `
		function Animal(name) { this.name = name; }
		Animal.prototype.speak = function() { return this.name + " makes a sound"; };
		function Dog(name) { Animal.call(this, name); }
		Dog.prototype = {__proto__: Animal.prototype};
		Dog.prototype.constructor = Dog;
		var d = new Dog("Rex");
		[d.speak(), d instanceof Dog, d instanceof Animal].join("|");
	`)
	assert.Equal(t, "Rex makes a sound|true|true", got)
}

func TestConstructorPrototypeBackPointer(t *testing.T) {
	got := eval(t, `
		function F() {}
		F.prototype.constructor === F;
	`)
	assert.Equal(t, true, got)
}

func TestNewWithExplicitObjectReturnOverridesThis(t *testing.T) {
	got := eval(t, `
		function F() { this.x = 1; return {x: 99}; }
		(new F()).x;
	`)
	assert.Equal(t, float64(99), got)
}

func TestNewWithPrimitiveReturnIgnoresIt(t *testing.T) {
	got := eval(t, `
		function F() { this.x = 1; return 42; }
		(new F()).x;
	`)
	assert.Equal(t, float64(1), got)
}

func TestDeleteProperty(t *testing.T) {
	got := eval(t, `
		var o = {a: 1};
		var had = delete o.a;
		[had, "a" in o].join(",");
	`)
	assert.Equal(t, "true,false", got)
}

func TestDeleteOnNonPropertyAlwaysTrue(t *testing.T) {
	got := eval(t, `delete 1;`)
	assert.Equal(t, true, got)
}

func TestTypeofUndeclaredGlobalIsUndefinedNotThrow(t *testing.T) {
	got := eval(t, `typeof neverDeclared;`)
	assert.Equal(t, "undefined", got)
}

func TestForInEnumeratesOwnKeysInsertionOrder(t *testing.T) {
	got := eval(t, `
		var o = {b: 1, a: 2, c: 3};
		var keys = [];
		for (var k in o) keys.push(k);
		keys.join(",");
	`)
	assert.Equal(t, "b,a,c", got)
}

func TestForOfIteratesArraySnapshot(t *testing.T) {
	got := eval(t, `
		var a = [1,2,3];
		var sum = 0;
		for (var x of a) { sum += x; a.push(100); }
		sum;
	`)
	assert.Equal(t, float64(6), got)
}

func TestBoundFunctionPrependsArgs(t *testing.T) {
	got := eval(t, `
		function add(a, b) { return a + b; }
		var add5 = add.bind(null, 5);
		add5(10);
	`)
	assert.Equal(t, float64(15), got)
}

func TestPostfixVsPrefixIncrement(t *testing.T) {
	got := eval(t, `
		var x = 1;
		var post = x++;
		var pre = ++x;
		[post, pre, x].join(",");
	`)
	assert.Equal(t, "1,3,3", got)
}

func TestPropertyPostfixIncrementPreservesCompletionValue(t *testing.T) {
	got := eval(t, `
		var o = {n: 5};
		var v = o.n++;
		[v, o.n].join(",");
	`)
	assert.Equal(t, "5,6", got)
}

func TestTernaryAndLogicalShortCircuit(t *testing.T) {
	got := eval(t, `
		var calls = 0;
		function sideEffect() { calls++; return true; }
		var a = false && sideEffect();
		var b = true || sideEffect();
		[a, b, calls].join(",");
	`)
	assert.Equal(t, "false,true,0", got)
}

func TestArithmeticSignedZeroAndDivision(t *testing.T) {
	got := eval(t, `
		var negZero = -0;
		var a = 1 / 0;
		var b = -1 / 0;
		var c = 0 / 0;
		[1/negZero === -Infinity, a, b, c].join(",");
	`)
	assert.Equal(t, "true,Infinity,-Infinity,NaN", got)
}

func TestBitwiseOperators(t *testing.T) {
	got := eval(t, `[5 & 3, 5 | 2, 5 ^ 1, ~5, 1 << 3, -8 >> 1, -8 >>> 28].join(",");`)
	assert.Equal(t, "1,7,4,-6,8,-4,15", got)
}

func TestStringConcatenationViaPlus(t *testing.T) {
	got := eval(t, `1 + "2" + 3;`)
	assert.Equal(t, "123", got)
}

func TestAbstractVsStrictEquality(t *testing.T) {
	got := eval(t, `[(null == undefined), (null === undefined), ("1" == 1), ("1" === 1)].join(",");`)
	assert.Equal(t, "true,false,true,false", got)
}

func TestArrowFunctionForms(t *testing.T) {
	got := eval(t, `
		var a = x => x * 2;
		var b = (x, y) => x + y;
		var c = () => 42;
		var d = x => ({ v: x });
		[a(3), b(2,3), c(), d(7).v].join(",");
	`)
	assert.Equal(t, "6,5,42,7", got)
}

func TestArrowFunctionDoesNotBindOwnThis(t *testing.T) {
	got := eval(t, `
		function Counter() {
			this.count = 0;
			this.inc = function() {
				var step = () => { this.count++; };
				step();
			};
		}
		var c = new Counter();
		c.inc();
		c.inc();
		c.count;
	`)
	assert.Equal(t, float64(2), got)
}

func TestRegexNamedishCaptureAndGlobalFlag(t *testing.T) {
	got := eval(t, `
		var re = /(\d+)-(\d+)/g;
		var matches = [];
		var m;
		while ((m = re.exec("3-4 and 10-20")) !== null) {
			matches.push(m[1] + "/" + m[2]);
		}
		matches.join(" ");
	`)
	assert.Equal(t, "3/4 10/20", got)
}

func TestRegexLookaheadAssertion(t *testing.T) {
	got := eval(t, `/foo(?=bar)/.test("foobar");`)
	assert.Equal(t, true, got)
	got = eval(t, `/foo(?=bar)/.test("foobaz");`)
	assert.Equal(t, false, got)
}

func TestArraySliceAndIndexOf(t *testing.T) {
	got := eval(t, `
		var a = [1,2,3,4,5];
		[a.slice(1,3).join(","), a.slice(-2).join(","), a.indexOf(3)].join("|");
	`)
	assert.Equal(t, "2,3|4,5|2", got)
}

func TestJSONRoundTrip(t *testing.T) {
	got := eval(t, `JSON.stringify(JSON.parse('{"a":[1,2,3],"b":"x"}'));`)
	assert.Equal(t, `{"a":[1,2,3],"b":"x"}`, got)
}

func TestStrictEqualityNaNAxiom(t *testing.T) {
	got := eval(t, `var n = NaN; n === n;`)
	assert.Equal(t, false, got)
}

func TestFinallyRunsOnReturnThroughTry(t *testing.T) {
	got := eval(t, `
		var log = [];
		function f() {
			try {
				return 1;
			} finally {
				log.push("cleanup");
			}
		}
		var r = f();
		[r, log.join(",")].join("|");
	`)
	assert.Equal(t, "1|cleanup", got)
}

func TestFinallyRunsOnBreakThroughTry(t *testing.T) {
	got := eval(t, `
		var log = [];
		for (var i = 0; i < 3; i++) {
			try {
				if (i === 1) break;
				log.push(i);
			} finally {
				log.push("f" + i);
			}
		}
		log.join(",");
	`)
	assert.Equal(t, "0,f0,f1", got)
}
