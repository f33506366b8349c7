// Package jsctx is the host-embedding façade over the lexer/parser/compiler/vm
// pipeline: a Context owns one Realm and lets a host evaluate source, read
// and write globals, and exchange values across the host/guest boundary
// without touching any of the lower packages directly.
package jsctx

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/simonw/micro-javascript-sub000/builtins"
	"github.com/simonw/micro-javascript-sub000/bytecode"
	"github.com/simonw/micro-javascript-sub000/compiler"
	"github.com/simonw/micro-javascript-sub000/parser"
	"github.com/simonw/micro-javascript-sub000/value"
	"github.com/simonw/micro-javascript-sub000/vm"
)

// Context is one sandboxed evaluation environment: a Realm with its builtin
// surface installed, plus the resource limits every Eval runs under. It is
// not safe for concurrent use by multiple goroutines — callers that need
// concurrent evaluation should give each goroutine its own Context.
type Context struct {
	realm *vm.Realm
	cfg   ResourceConfig

	cacheMu sync.Mutex
	cache   map[[blake2b.Size256]byte]*bytecode.CompiledFunction
}

// NewContext builds a fresh sandboxed evaluation environment with its
// builtin surface installed. cfg may be nil, in which case Eval runs with no
// step or wall-clock budget at all — callers embedding untrusted scripts
// should always supply one.
func NewContext(cfg *ResourceConfig) *Context {
	realm := vm.NewRealm()
	builtins.Install(realm, builtins.Options{})
	c := &Context{realm: realm, cache: make(map[[blake2b.Size256]byte]*bytecode.CompiledFunction)}
	if cfg != nil {
		c.cfg = *cfg
	}
	return c
}

// compile parses and compiles source, memoizing the result under a blake2b-256
// hash of the source text — re-evaluating the same snippet (a hot loop body,
// a repeated callback) skips lex/parse/compile entirely on every hit after
// the first.
func (c *Context) compile(source string) (*bytecode.CompiledFunction, error) {
	key := blake2b.Sum256([]byte(source))

	c.cacheMu.Lock()
	if fn, ok := c.cache[key]; ok {
		c.cacheMu.Unlock()
		return fn, nil
	}
	c.cacheMu.Unlock()

	prog, err := parser.Parse(source)
	if err != nil {
		return nil, newSyntaxError(err.Error())
	}
	fn, err := compiler.Compile(prog)
	if err != nil {
		return nil, newSyntaxError(err.Error())
	}

	c.cacheMu.Lock()
	c.cache[key] = fn
	c.cacheMu.Unlock()
	return fn, nil
}

// Eval compiles and runs source against this Context's global object,
// returning the completion value of the last statement marshalled to a host
// value (see ToHost). A MemoryLimit or TimeLimit error means evaluation was
// aborted partway through and the Realm's globals may reflect a partial
// mutation — the Context remains otherwise usable for a subsequent Eval.
func (c *Context) Eval(source string) (any, error) {
	fn, err := c.compile(source)
	if err != nil {
		return nil, err
	}

	m := vm.New(c.realm)
	if c.cfg.MemoryLimitBytes > 0 {
		m.MaxMemoryBytes = c.cfg.MemoryLimitBytes
	}
	if c.cfg.TimeLimitSecs > 0 {
		deadline := time.Now().Add(time.Duration(c.cfg.TimeLimitSecs * float64(time.Second)))
		m.PollCB = func() error {
			if time.Now().After(deadline) {
				return fmt.Errorf("exceeded time limit of %.3fs", c.cfg.TimeLimitSecs)
			}
			return nil
		}
	}

	result, err := m.Run(fn)
	if err != nil {
		return nil, c.classify(err)
	}
	return ToHost(c, result), nil
}

// classify reclassifies a *vm.ThrownError or *vm.LimitError — the only two
// error shapes Run/Call ever produce — into the JSError family so a host
// never needs to import package vm to branch on failure kind.
func (c *Context) classify(err error) error {
	switch e := err.(type) {
	case *vm.ThrownError:
		return c.classifyThrown(e)
	case *vm.LimitError:
		switch e.Kind {
		case "time":
			return newTimeLimit(e.Message)
		case "memory":
			return newMemoryLimit(e.Message)
		default:
			// "step": the VM's own opcode hard-cap, not wired to any
			// ResourceConfig field — surfaced as MemoryLimit only as a
			// last-resort classification, since jsctx never sets MaxSteps
			// itself.
			return newMemoryLimit(e.Message)
		}
	default:
		return newGenericError("Error", err.Error())
	}
}

func (c *Context) classifyThrown(e *vm.ThrownError) JSError {
	name := "Error"
	message := value.ToString(e.Value)
	if e.Value.IsObjectLike() && e.Value.Object() != nil {
		if n, ok := e.Value.Object().GetOwn("name"); ok {
			name = value.ToString(n)
		}
		if m, ok := e.Value.Object().GetOwn("message"); ok {
			message = value.ToString(m)
		}
	}
	switch name {
	case "TypeError":
		return newTypeError(message)
	case "RangeError":
		return newRangeError(message)
	case "ReferenceError":
		return newReferenceError(message)
	case "SyntaxError":
		return newSyntaxError(message)
	default:
		return newGenericError(name, message)
	}
}

// Get reads a global binding, marshalled to a host value. The second return
// value is false if no such global exists.
func (c *Context) Get(name string) (any, bool) {
	v, ok := c.realm.Global.GetOwn(name)
	if !ok {
		return nil, false
	}
	return ToHost(c, v), true
}

// Set installs or overwrites a global binding from a host value (see
// FromHost for the accepted shapes).
func (c *Context) Set(name string, v any) error {
	guestVal, err := FromHost(c, v)
	if err != nil {
		return err
	}
	c.realm.Global.SetOwn(name, guestVal)
	return nil
}

// debugSnapshot is the shape Snapshot encodes: enough of a Context's visible
// state to diff across runs or attach to a bug report, never the full Realm
// (function bodies and internal object graphs are not meant to round-trip).
type debugSnapshot struct {
	Globals    map[string]string `cbor:"globals"`
	CacheSize  int               `cbor:"cache_size"`
	ConfigHash string            `cbor:"config_hash"`
}

// canonicalCBOREncMode is the deterministic encoder every Snapshot call
// shares, built once and reused: cbor.CanonicalEncOptions() sorts map keys
// and fixes numeric/length encodings so the same debugSnapshot value always
// produces byte-identical output, the same technique canonical.go's
// MarshalBinary uses to make a CanonicalPlan's encoding reproducible.
var canonicalCBOREncMode = sync.OnceValues(func() (cbor.EncMode, error) {
	return cbor.CanonicalEncOptions().EncMode()
})

// Snapshot encodes a debug summary of this Context's visible state as CBOR:
// every global's name and type tag, how many compiled functions are cached,
// and a short hash identifying the active resource config. It exists for
// attaching to bug reports and golden-file regression tests, not for
// restoring a Context later. The encoding is canonical (sorted map keys,
// deterministic lengths) so repeated calls against unchanged state produce
// byte-identical output.
func (c *Context) Snapshot() ([]byte, error) {
	globals := make(map[string]string)
	for _, k := range c.realm.Global.OwnKeys() {
		v, _ := c.realm.Global.GetOwn(k)
		globals[k] = value.TypeOf(v)
	}

	c.cacheMu.Lock()
	cacheSize := len(c.cache)
	c.cacheMu.Unlock()

	cfgBytes := fmt.Appendf(nil, "%d:%g:%s", c.cfg.MemoryLimitBytes, c.cfg.TimeLimitSecs, c.cfg.EngineVersion)
	sum := blake2b.Sum256(cfgBytes)

	snap := debugSnapshot{
		Globals:    globals,
		CacheSize:  cacheSize,
		ConfigHash: hex.EncodeToString(sum[:8]),
	}
	encMode, err := canonicalCBOREncMode()
	if err != nil {
		return nil, fmt.Errorf("jsctx: building canonical CBOR encoder: %w", err)
	}
	return encMode.Marshal(snap)
}
