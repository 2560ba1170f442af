// Package callable defines the uniform contract implemented by every built-in.
//
// A built-in is either a Command, invoked for its effect, or a Function, invoked for its
// value. Both are described by an immutable Descriptor that carries the metadata used by
// help and completion tooling and the argument contract checked before execution.
package callable

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapbasic/pkg/value"
)

// Kind distinguishes commands from functions.
type Kind int

// Callable kinds.
const (
	KindCommand Kind = iota + 1
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Command is a built-in invoked for its side effects.
type Command interface {
	Exec(inv *Invocation) error
}

// Function is a built-in invoked for the value it produces.
type Function interface {
	Call(inv *Invocation) (value.Value, error)
}

// CommandFunc adapts a plain function to Command.
type CommandFunc func(inv *Invocation) error

// Exec implements Command.
func (f CommandFunc) Exec(inv *Invocation) error { return f(inv) }

// FunctionFunc adapts a plain function to Function.
type FunctionFunc func(inv *Invocation) (value.Value, error)

// Call implements Function.
func (f FunctionFunc) Call(inv *Invocation) (value.Value, error) { return f(inv) }

// Param declares one formal parameter. Type value.Void accepts any scalar or array.
// Optional parameters must follow required ones, and only the last parameter may repeat.
type Param struct {
	Name     string
	Type     value.Kind
	Optional bool
	Repeated bool
}

func (p Param) String() string {
	sfx := p.Type.Suffix()
	s := p.Name + sfx
	switch {
	case p.Repeated:
		return "[" + p.Name + "1" + sfx + " ... " + p.Name + "N" + sfx + "]"
	case p.Optional:
		return "[" + s + "]"
	default:
		return s
	}
}

// Metadata is the human-facing description of a built-in.
type Metadata struct {
	Name        string
	Category    string
	Description string
	Params      []Param
	// Syntax overrides the usage string derived from Params.
	Syntax string
}

// Descriptor describes a registered built-in. It is immutable once created.
type Descriptor struct {
	meta     Metadata
	kind     Kind
	returns  value.Kind
	command  Command
	function Function
	minArgs  int
	maxArgs  int
}

// NewCommand describes a command.
func NewCommand(meta Metadata, cmd Command) *Descriptor {
	d := &Descriptor{meta: cloneMeta(meta), kind: KindCommand, command: cmd}
	d.minArgs, d.maxArgs = arity(meta.Params)
	return d
}

// NewFunction describes a function returning values of kind returns.
func NewFunction(meta Metadata, returns value.Kind, fn Function) *Descriptor {
	d := &Descriptor{meta: cloneMeta(meta), kind: KindFunction, returns: returns, function: fn}
	d.minArgs, d.maxArgs = arity(meta.Params)
	return d
}

func cloneMeta(meta Metadata) Metadata {
	meta.Params = append([]Param(nil), meta.Params...)
	return meta
}

func arity(params []Param) (minArgs, maxArgs int) {
	for _, p := range params {
		if !p.Optional && !p.Repeated {
			minArgs++
		}
	}
	maxArgs = len(params)
	if len(params) > 0 && params[len(params)-1].Repeated {
		maxArgs = -1
	}
	return minArgs, maxArgs
}

// Validate checks that the descriptor is well formed.
func (d *Descriptor) Validate() error {
	if _, err := value.ParseRef(d.meta.Name); err != nil {
		return fmt.Errorf("invalid built-in name: %w", err)
	}
	if d.meta.Name != strings.TrimRight(d.meta.Name, "?#%$") {
		return fmt.Errorf("built-in name %q must not carry a type annotation", d.meta.Name)
	}
	if d.meta.Category == "" {
		return fmt.Errorf("built-in %s has no category", d.meta.Name)
	}
	switch d.kind {
	case KindCommand:
		if d.command == nil {
			return fmt.Errorf("command %s has no implementation", d.meta.Name)
		}
	case KindFunction:
		if d.function == nil {
			return fmt.Errorf("function %s has no implementation", d.meta.Name)
		}
		if d.returns == value.Void {
			return fmt.Errorf("function %s must declare a return type", d.meta.Name)
		}
	default:
		return fmt.Errorf("built-in %s has no kind", d.meta.Name)
	}
	seenOptional := false
	for i, p := range d.meta.Params {
		if p.Repeated && i != len(d.meta.Params)-1 {
			return fmt.Errorf("%s: only the last parameter may repeat", d.meta.Name)
		}
		if p.Optional {
			seenOptional = true
		} else if seenOptional && !p.Repeated {
			return fmt.Errorf("%s: required parameter %s follows an optional one", d.meta.Name, p.Name)
		}
	}
	return nil
}

// Name returns the registered name, without type annotation.
func (d *Descriptor) Name() string { return d.meta.Name }

// Kind returns whether this is a command or a function.
func (d *Descriptor) Kind() Kind { return d.kind }

// Category returns the help category.
func (d *Descriptor) Category() string { return d.meta.Category }

// Description returns the long description.
func (d *Descriptor) Description() string { return d.meta.Description }

// Summary returns the first line of the description.
func (d *Descriptor) Summary() string {
	first, _, _ := strings.Cut(d.meta.Description, "\n")
	return first
}

// Returns is the kind of value a function produces; Void for commands.
func (d *Descriptor) Returns() value.Kind { return d.returns }

// Params returns a copy of the formal parameters.
func (d *Descriptor) Params() []Param { return append([]Param(nil), d.meta.Params...) }

// Arity returns the accepted argument counts; maxArgs is -1 when unbounded.
func (d *Descriptor) Arity() (minArgs, maxArgs int) { return d.minArgs, d.maxArgs }

// Usage renders the call syntax, e.g. "LEFT$(expr$, n%)" or "PRINT [expr1 ... exprN]".
func (d *Descriptor) Usage() string {
	if d.meta.Syntax != "" {
		return d.meta.Syntax
	}
	params := make([]string, len(d.meta.Params))
	for i, p := range d.meta.Params {
		params[i] = p.String()
	}
	args := strings.Join(params, ", ")
	if d.kind == KindFunction {
		name := d.meta.Name + d.returns.Suffix()
		if args == "" {
			return name
		}
		return name + "(" + args + ")"
	}
	if args == "" {
		return d.meta.Name
	}
	return d.meta.Name + " " + args
}

// Check verifies args against the declared contract. Arity is checked before types so
// that a wrong number of arguments is always reported as such.
func (d *Descriptor) Check(args []value.Value) error {
	n := len(args)
	if n < d.minArgs || (d.maxArgs >= 0 && n > d.maxArgs) {
		return NewArityError(d.meta.Name, d.minArgs, d.maxArgs, n)
	}
	for i, arg := range args {
		p := d.meta.Params[min(i, len(d.meta.Params)-1)]
		if !accepts(p.Type, arg.Kind()) {
			return NewTypeError(d.meta.Name, i+1, p.Type, arg.Kind())
		}
	}
	return nil
}

// accepts implements the descriptor-level type check. Integers widen to doubles; any
// other conversion is the evaluator's job.
func accepts(want, got value.Kind) bool {
	switch {
	case got == value.Void:
		return false
	case want == value.Void:
		return true
	case want == got:
		return true
	default:
		return want == value.Double && got == value.Integer
	}
}

// Run executes the built-in behind d. Commands yield a Void value.
func (d *Descriptor) Run(inv *Invocation) (value.Value, error) {
	switch d.kind {
	case KindCommand:
		return value.Value{}, d.command.Exec(inv)
	case KindFunction:
		v, err := d.function.Call(inv)
		if err != nil {
			return value.Value{}, err
		}
		if conv, cerr := value.Convert(v, d.returns); cerr == nil {
			return conv, nil
		}
		return value.Value{}, NewInternalError(d.meta.Name, "returned %s instead of %s", v.Kind(), d.returns)
	default:
		return value.Value{}, NewInternalError(d.meta.Name, "descriptor has no kind")
	}
}
