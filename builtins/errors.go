package builtins

import (
	"github.com/simonw/micro-javascript-sub000/value"
	"github.com/simonw/micro-javascript-sub000/vm"
)

// errorNames lists every Error subtype the global object exposes as a
// constructor; each shares realm.ErrorProto the way TypeError/RangeError/
// ReferenceError thrown from inside the VM already do, so guest `instanceof
// Error` holds for both host-thrown and guest-constructed error values.
var errorNames = []string{"Error", "TypeError", "RangeError", "ReferenceError", "SyntaxError"}

func installErrorGlobals(realm *vm.Realm) {
	for _, name := range errorNames {
		name := name
		ctor := func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
			message := ""
			if len(args) > 0 {
				message = value.ToString(args[0])
			}
			return realm.NewError(name, message), nil
		}
		ctorObj := value.NewHostFunction(name, ctor, realm.FunctionProto)
		ctorObj.SetOwn("prototype", value.FromObject(realm.ErrorProto))
		realm.Global.SetOwn(name, value.FromObject(ctorObj))
	}

	method(realm.ErrorProto, "toString", func(c value.Caller, this value.Value, args []value.Value) (value.Value, error) {
		if !this.IsObjectLike() || this.Object() == nil {
			return value.String("Error"), nil
		}
		name := "Error"
		if n, ok := this.Object().GetOwn("name"); ok {
			name = value.ToString(n)
		}
		msg := ""
		if m, ok := this.Object().GetOwn("message"); ok {
			msg = value.ToString(m)
		}
		if msg == "" {
			return value.String(name), nil
		}
		return value.String(name + ": " + msg), nil
	}, realm)
}
