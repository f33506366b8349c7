package value

import "github.com/simonw/micro-javascript-sub000/jsregexp"

// RegExpData backs a regexp Value's Object.RegExp field. lastIndex lives here rather than as
// an ordinary own property because it must be read/written on every
// global/sticky exec call regardless of what guest code does to the
// object's other properties.
type RegExpData struct {
	Source    string
	Flags     jsregexp.Flags
	Program   *jsregexp.Program
	LastIndex int
}

// NewRegExp builds a regexp object. proto is the shared RegExp.prototype.
func NewRegExp(source string, flags jsregexp.Flags, prog *jsregexp.Program, proto *Object) *Object {
	o := NewObject(proto)
	o.RegExp = &RegExpData{Source: source, Flags: flags, Program: prog}
	return o
}

// FlagsString reconstructs the flags string in the canonical order this module
// §3 expects from a RegExp's.flags getter.
func (r *RegExpData) FlagsString() string {
	s := ""
	if r.Flags.Global {
		s += "g"
	}
	if r.Flags.IgnoreCase {
		s += "i"
	}
	if r.Flags.Multiline {
		s += "m"
	}
	if r.Flags.DotAll {
		s += "s"
	}
	if r.Flags.Unicode {
		s += "u"
	}
	if r.Flags.Sticky {
		s += "y"
	}
	return s
}
