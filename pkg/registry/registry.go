// Package registry provides the symbol registry that maps built-in names to descriptors.
// It is built once at startup, sealed, and then shared read-only by the evaluator, the
// execution bridge and help or completion tooling.
package registry

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/symtab"
	"github.com/leapstack-labs/leapbasic/pkg/value"
)

// DuplicateNameError is returned when a name is registered twice, ignoring case.
type DuplicateNameError struct {
	Name     string
	Existing string
}

func (e *DuplicateNameError) Error() string {
	if e.Name == e.Existing {
		return fmt.Sprintf("built-in %s is already registered", e.Name)
	}
	return fmt.Sprintf("built-in %s clashes with already registered %s", e.Name, e.Existing)
}

// Registry maps case-insensitive names to callable descriptors.
type Registry struct {
	index  *symtab.Index[*callable.Descriptor]
	sealed bool
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report registrations.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		index:  symtab.New[*callable.Descriptor](),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds d under its name. It fails if the descriptor is malformed, if the name is
// already taken (ignoring case), or if the registry has been sealed.
func (r *Registry) Register(d *callable.Descriptor) error {
	if r.sealed {
		return callable.NewInternalError(d.Name(), "cannot register after the registry was sealed")
	}
	if err := d.Validate(); err != nil {
		return callable.NewInternalError(d.Name(), "%v", err)
	}
	if err := r.index.Insert(d.Name(), d); err != nil {
		var dup *symtab.DuplicateError
		if errors.As(err, &dup) {
			return &DuplicateNameError{Name: dup.Name, Existing: dup.Existing}
		}
		return err
	}
	r.logger.Debug("registered built-in", "name", d.Name(), "kind", d.Kind().String(), "category", d.Category())
	return nil
}

// RegisterAll registers every descriptor, stopping at the first failure.
func (r *Registry) RegisterAll(ds ...*callable.Descriptor) error {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister is Register for startup glue where a failure is a programming error.
func (r *Registry) MustRegister(ds ...*callable.Descriptor) {
	if err := r.RegisterAll(ds...); err != nil {
		panic(err)
	}
}

// Seal makes the registry read-only. It is idempotent.
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// Lookup finds a descriptor by exact name, ignoring case.
func (r *Registry) Lookup(name string) (*callable.Descriptor, bool) {
	return r.index.Get(name)
}

// Resolve finds the descriptor for a typed reference. Functions accept a reference
// annotated with their return type or with no annotation; commands accept no annotation.
func (r *Registry) Resolve(ref value.Ref) (*callable.Descriptor, error) {
	d, ok := r.index.Get(ref.Name)
	if !ok {
		return nil, callable.NewUnknownError(ref.String())
	}
	if ref.Annotation == value.Void {
		return d, nil
	}
	if d.Kind() == callable.KindCommand {
		return nil, &callable.Error{
			Kind:     callable.ArgumentError,
			Reason:   callable.ReasonType,
			Callable: ref.String(),
			Msg:      "commands cannot carry a type annotation",
		}
	}
	if !ref.Accepts(d.Returns()) {
		return nil, &callable.Error{
			Kind:     callable.ArgumentError,
			Reason:   callable.ReasonType,
			Callable: ref.String(),
			Msg:      fmt.Sprintf("incompatible type annotation; %s returns %s", d.Name(), d.Returns()),
		}
	}
	return d, nil
}

// PrefixSearch lazily yields every descriptor whose name starts with prefix, ignoring
// case, in ascending name order.
func (r *Registry) PrefixSearch(prefix string) iter.Seq2[string, *callable.Descriptor] {
	return r.index.Prefix(prefix)
}

// Names returns every registered name in ascending order.
func (r *Registry) Names() []string {
	return r.index.Names()
}

// Len returns the number of registered built-ins.
func (r *Registry) Len() int {
	return r.index.Len()
}

// Categories returns the distinct categories, sorted.
func (r *Registry) Categories() []string {
	seen := make(map[string]struct{})
	for _, d := range r.index.All() {
		seen[d.Category()] = struct{}{}
	}
	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// ByCategory returns the descriptors in category, in name order. Category matching
// ignores case.
func (r *Registry) ByCategory(category string) []*callable.Descriptor {
	want := symtab.Fold(category)
	var ds []*callable.Descriptor
	for _, d := range r.index.All() {
		if symtab.Fold(d.Category()) == want {
			ds = append(ds, d)
		}
	}
	return ds
}
