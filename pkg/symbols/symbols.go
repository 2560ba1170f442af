// Package symbols holds the variables of a running program.
//
// Variables live in the same kind of case-insensitive prefix index as the built-ins, and
// a Table refuses names that would shadow a registered command or function so that name
// resolution in the evaluator is never ambiguous.
package symbols

import (
	"errors"
	"fmt"
	"iter"

	"github.com/leapstack-labs/leapbasic/pkg/registry"
	"github.com/leapstack-labs/leapbasic/pkg/symtab"
	"github.com/leapstack-labs/leapbasic/pkg/value"
)

// ErrUndefined is returned when a variable does not exist.
var ErrUndefined = errors.New("undefined variable")

// ShadowError reports an attempt to define a variable with the name of a built-in.
type ShadowError struct {
	Name string
}

func (e *ShadowError) Error() string {
	return fmt.Sprintf("cannot define %s: name is already used by a built-in", e.Name)
}

// Table maps variable names to values. The kind of a variable is fixed when it is defined.
type Table struct {
	reg  *registry.Registry
	vars *symtab.Index[value.Value]
}

// NewTable returns an empty table. reg may be nil when no built-ins need protecting.
func NewTable(reg *registry.Registry) *Table {
	return &Table{reg: reg, vars: symtab.New[value.Value]()}
}

// Define creates a variable. When ref carries an annotation, v is converted to that kind;
// otherwise the variable takes v's kind. Defining an existing name fails.
func (t *Table) Define(ref value.Ref, v value.Value) error {
	if t.reg != nil {
		if _, ok := t.reg.Lookup(ref.Name); ok {
			return &ShadowError{Name: ref.Name}
		}
	}
	if v.IsVoid() {
		return fmt.Errorf("cannot define %s without a value", ref)
	}
	if ref.Annotation != value.Void {
		conv, err := value.Convert(v, ref.Annotation)
		if err != nil {
			return fmt.Errorf("cannot define %s: %w", ref, err)
		}
		v = conv
	}
	if err := t.vars.Insert(ref.Name, v); err != nil {
		var dup *symtab.DuplicateError
		if errors.As(err, &dup) {
			return fmt.Errorf("cannot define %s: already defined as %s", ref, dup.Existing)
		}
		return err
	}
	return nil
}

// Get returns the value of a variable. A typed reference must match the variable's kind.
func (t *Table) Get(ref value.Ref) (value.Value, error) {
	v, ok := t.vars.Get(ref.Name)
	if !ok {
		return value.Value{}, fmt.Errorf("%w %s", ErrUndefined, ref)
	}
	if !ref.Accepts(v.Kind()) {
		return value.Value{}, fmt.Errorf("incompatible type annotation in %s: variable is %s", ref, v.Kind())
	}
	return v, nil
}

// Set assigns v to a variable, defining it first if needed. Integers and doubles convert
// into the variable's kind; any other mismatch fails and leaves the variable untouched.
func (t *Table) Set(ref value.Ref, v value.Value) error {
	cur, ok := t.vars.Get(ref.Name)
	if !ok {
		return t.Define(ref, v)
	}
	if !ref.Accepts(cur.Kind()) {
		return fmt.Errorf("incompatible type annotation in %s: variable is %s", ref, cur.Kind())
	}
	conv, err := value.Convert(v, cur.Kind())
	if err != nil {
		return fmt.Errorf("cannot assign to %s: %w", ref, err)
	}
	name, _ := t.vars.Spelling(ref.Name)
	t.vars.Replace(name, conv)
	return nil
}

// Remove deletes a variable and reports whether it existed.
func (t *Table) Remove(name string) bool {
	return t.vars.Remove(name)
}

// Clear deletes every variable.
func (t *Table) Clear() {
	t.vars.Clear()
}

// Len returns the number of variables.
func (t *Table) Len() int {
	return t.vars.Len()
}

// Prefix lazily yields the variables whose name starts with prefix, ignoring case, in
// ascending order.
func (t *Table) Prefix(prefix string) iter.Seq2[string, value.Value] {
	return t.vars.Prefix(prefix)
}

// Names returns every variable name as first spelled, in ascending order.
func (t *Table) Names() []string {
	return t.vars.Names()
}
