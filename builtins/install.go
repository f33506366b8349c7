// Package builtins implements the host-provided callable surface: Math,
// JSON, console, and the Array/String/Number/Object/Function/RegExp method
// families guest code expects to find on every value's prototype chain. None
// of it is part of the compiled pipeline itself — it exists so a program is
// actually runnable end to end.
//
// Method tables are restructured into ordinary Go functions installed once
// per Realm on the shared prototype objects rather than rebuilt on every
// property access, the same shape runtime/decorators/builtin's
// action-decorator table uses: one function per verb, registered once,
// looked up by name.
package builtins

import (
	"io"
	"math"
	"os"

	"github.com/simonw/micro-javascript-sub000/value"
	"github.com/simonw/micro-javascript-sub000/vm"
)

// Options configures the slice of the built-in surface Install wires up.
// Stdout defaults to os.Stdout when nil; package jsctx overrides it so
// console.log can be captured in tests or redirected by the embedder.
type Options struct {
	Stdout io.Writer
}

// Install populates realm's global object and builtin prototypes with the
// host-callable surface described above. It is idempotent only in the sense
// that it is meant to be called exactly once per freshly-built Realm
// (jsctx.NewContext's job).
func Install(realm *vm.Realm, opts Options) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	installArrayProto(realm)
	installStringProto(realm)
	installNumberProto(realm)
	installBooleanProto(realm)
	installObjectProto(realm)
	installFunctionProto(realm)
	installRegExpProto(realm)

	installArrayGlobal(realm)
	installObjectGlobal(realm)
	installErrorGlobals(realm)
	installRegExpGlobal(realm)
	installMath(realm)
	installJSON(realm)
	installConsole(realm, opts.Stdout)
	installGlobalFunctions(realm)

	realm.Global.SetOwn("undefined", value.Undefined)
	realm.Global.SetOwn("NaN", value.Number(math.NaN()))
	realm.Global.SetOwn("Infinity", value.Number(math.Inf(1)))
}

// method installs a single host function under name on proto, sharing
// realm.FunctionProto the way every other callable in this module does —
// but host functions have no back-referring prototype of their own; they
// are plain callables, never constructed with `new`.
func method(proto *value.Object, name string, fn value.HostFunc, realm *vm.Realm) {
	proto.SetOwn(name, value.FromObject(value.NewHostFunction(name, fn, realm.FunctionProto)))
}
