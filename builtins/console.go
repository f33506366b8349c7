package builtins

import (
	"fmt"
	"io"
	"strings"

	"github.com/simonw/micro-javascript-sub000/value"
	"github.com/simonw/micro-javascript-sub000/vm"
)

// installConsole wires console.log/warn/error/info to a single writer;
// every level behaves identically (no level-based filtering) since the
// dialect has no logging configuration to gate on.
func installConsole(realm *vm.Realm, stdout io.Writer) {
	console := value.NewObject(realm.ObjectProto)
	logFn := func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = consoleFormat(a, map[*value.Object]bool{})
		}
		fmt.Fprintln(stdout, strings.Join(parts, " "))
		return value.Undefined, nil
	}
	for _, name := range []string{"log", "warn", "error", "info", "debug"} {
		console.SetOwn(name, value.FromObject(value.NewHostFunction(name, logFn, realm.FunctionProto)))
	}
	realm.Global.SetOwn("console", value.FromObject(console))
}

// consoleFormat renders a value the way console.log does: strings print
// unquoted, arrays/objects print as bracketed literals, and seen guards
// against printing a cyclic structure forever.
func consoleFormat(v value.Value, seen map[*value.Object]bool) string {
	switch {
	case v.IsString():
		return v.Str()
	case v.IsArray():
		if seen[v.Object()] {
			return "[Circular]"
		}
		seen[v.Object()] = true
		elems := v.Object().Array.Elements
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = consoleFormatNested(e, seen)
		}
		return "[ " + strings.Join(parts, ", ") + " ]"
	case v.IsFunction():
		name := v.Object().Function.Name
		if name == "" {
			name = "anonymous"
		}
		return "[Function: " + name + "]"
	case v.IsObjectLike() && v.Object() != nil:
		if seen[v.Object()] {
			return "[Circular]"
		}
		seen[v.Object()] = true
		keys := v.Object().OwnKeys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			val, _ := v.Object().GetOwn(k)
			parts[i] = k + ": " + consoleFormatNested(val, seen)
		}
		if len(parts) == 0 {
			return "{}"
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	default:
		return value.ToString(v)
	}
}

func consoleFormatNested(v value.Value, seen map[*value.Object]bool) string {
	if v.IsString() {
		return "'" + v.Str() + "'"
	}
	return consoleFormat(v, seen)
}
