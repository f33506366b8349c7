package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a CompiledFunction's bytecode as human-readable text,
//.../opcodes.py:disassemble, extended for the
// wider opcode set and 2-byte jump operands.
func Disassemble(fn *CompiledFunction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "function %s(%s):\n", nameOr(fn.Name, "<anonymous>"), strings.Join(fn.Params, ", "))
	code := fn.Code
	i := 0
	for i < len(code) {
		op := Op(code[i])
		fmt.Fprintf(&b, "%4d: %s", i, op)
		switch {
		case IsWide(op):
			if i+2 < len(code) {
				target := int(code[i+1]) | int(code[i+2])<<8
				fmt.Fprintf(&b, " -> %d", target)
				i += 3
			} else {
				i++
			}
		case HasOperand(op):
			if i+1 < len(code) {
				arg := int(code[i+1])
				if op == LOAD_CONST && arg < len(fn.Constants) {
					fmt.Fprintf(&b, " %d (%#v)", arg, fn.Constants[arg])
				} else {
					fmt.Fprintf(&b, " %d", arg)
				}
				i += 2
			} else {
				i++
			}
		default:
			i++
		}
		b.WriteByte('\n')
	}
	for _, c := range fn.Constants {
		if nested, ok := c.(*CompiledFunction); ok {
			b.WriteString("\n")
			b.WriteString(Disassemble(nested))
		}
	}
	return b.String()
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
