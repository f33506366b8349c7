package builtins

import (
	"math"
	"math/rand"

	"github.com/simonw/micro-javascript-sub000/value"
	"github.com/simonw/micro-javascript-sub000/vm"
)

// mathFn1 and mathFn2 adapt a stdlib math function of the matching arity
// into a value.HostFunc, the same one-function-per-verb shape installMath
// uses for every Math method.
func mathFn1(f func(float64) float64) value.HostFunc {
	return func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		return value.Number(f(value.ToNumber(arg(args, 0)))), nil
	}
}

func mathFn2(f func(float64, float64) float64) value.HostFunc {
	return func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		return value.Number(f(value.ToNumber(arg(args, 0)), value.ToNumber(arg(args, 1)))), nil
	}
}

// installMath builds the Math object's full method/constant table, grounded
// on the same name set the embedding layer's Math object exposes, restructured
// from one-off per-call wrappers into the mathFn1/mathFn2 adapters above.
func installMath(realm *vm.Realm) {
	m := value.NewObject(realm.ObjectProto)

	set := func(name string, fn value.HostFunc) {
		m.SetOwn(name, value.FromObject(value.NewHostFunction(name, fn, realm.FunctionProto)))
	}

	set("abs", mathFn1(math.Abs))
	set("floor", mathFn1(math.Floor))
	set("ceil", mathFn1(math.Ceil))
	set("round", mathFn1(func(n float64) float64 { return math.Floor(n + 0.5) }))
	set("trunc", mathFn1(math.Trunc))
	set("sign", mathFn1(func(n float64) float64 {
		switch {
		case math.IsNaN(n):
			return math.NaN()
		case n > 0:
			return 1
		case n < 0:
			return -1
		default:
			return n
		}
	}))
	set("sqrt", mathFn1(math.Sqrt))
	set("cbrt", mathFn1(math.Cbrt))
	set("exp", mathFn1(math.Exp))
	set("log", mathFn1(math.Log))
	set("log2", mathFn1(math.Log2))
	set("log10", mathFn1(math.Log10))
	set("sin", mathFn1(math.Sin))
	set("cos", mathFn1(math.Cos))
	set("tan", mathFn1(math.Tan))
	set("asin", mathFn1(math.Asin))
	set("acos", mathFn1(math.Acos))
	set("atan", mathFn1(math.Atan))
	set("sinh", mathFn1(math.Sinh))
	set("cosh", mathFn1(math.Cosh))
	set("tanh", mathFn1(math.Tanh))
	set("pow", mathFn2(math.Pow))
	set("atan2", mathFn2(math.Atan2))
	set("hypot", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		sum := 0.0
		for _, a := range args {
			n := value.ToNumber(a)
			sum += n * n
		}
		return value.Number(math.Sqrt(sum)), nil
	})
	set("max", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number(math.Inf(-1)), nil
		}
		best := math.Inf(-1)
		for _, a := range args {
			n := value.ToNumber(a)
			if math.IsNaN(n) {
				return value.Number(math.NaN()), nil
			}
			if n > best {
				best = n
			}
		}
		return value.Number(best), nil
	})
	set("min", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number(math.Inf(1)), nil
		}
		best := math.Inf(1)
		for _, a := range args {
			n := value.ToNumber(a)
			if math.IsNaN(n) {
				return value.Number(math.NaN()), nil
			}
			if n < best {
				best = n
			}
		}
		return value.Number(best), nil
	})
	set("random", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		return value.Number(rand.Float64()), nil
	})

	m.SetOwn("PI", value.Number(math.Pi))
	m.SetOwn("E", value.Number(math.E))
	m.SetOwn("LN2", value.Number(math.Ln2))
	m.SetOwn("LN10", value.Number(math.Log(10)))
	m.SetOwn("LOG2E", value.Number(1/math.Ln2))
	m.SetOwn("LOG10E", value.Number(1/math.Log(10)))
	m.SetOwn("SQRT2", value.Number(math.Sqrt2))
	m.SetOwn("SQRT1_2", value.Number(math.Sqrt(0.5)))

	realm.Global.SetOwn("Math", value.FromObject(m))
}
