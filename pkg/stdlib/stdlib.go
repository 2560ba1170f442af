// Package stdlib registers the standard library of built-ins.
package stdlib

import (
	"fmt"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/registry"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib/arrays"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib/console"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib/help"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib/numerics"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib/storage"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib/strs"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib/timefn"
	"github.com/leapstack-labs/leapbasic/pkg/symtab"
)

// Module is a named group of built-ins.
type Module struct {
	Name        string
	Descriptors func(reg *registry.Registry) []*callable.Descriptor
}

func static(ds func() []*callable.Descriptor) func(*registry.Registry) []*callable.Descriptor {
	return func(*registry.Registry) []*callable.Descriptor { return ds() }
}

// Modules returns every module of the standard library in registration order.
func Modules() []Module {
	return []Module{
		{Name: "arrays", Descriptors: static(arrays.Descriptors)},
		{Name: "console", Descriptors: static(console.Descriptors)},
		{Name: "numerics", Descriptors: static(numerics.Descriptors)},
		{Name: "storage", Descriptors: static(storage.Descriptors)},
		{Name: "strings", Descriptors: static(strs.Descriptors)},
		{Name: "time", Descriptors: static(timefn.Descriptors)},
		{Name: "help", Descriptors: help.Descriptors},
	}
}

// ModuleNames returns the names accepted by WithModules and WithoutModules.
func ModuleNames() []string {
	var names []string
	for _, m := range Modules() {
		names = append(names, m.Name)
	}
	return names
}

type options struct {
	only    map[string]bool
	exclude map[string]bool
	extra   []*callable.Descriptor
}

// Option configures Register.
type Option func(*options)

// WithModules restricts registration to the named modules.
func WithModules(names ...string) Option {
	return func(o *options) {
		o.only = make(map[string]bool)
		for _, n := range names {
			o.only[symtab.Fold(n)] = true
		}
	}
}

// WithoutModules skips the named modules.
func WithoutModules(names ...string) Option {
	return func(o *options) {
		for _, n := range names {
			o.exclude[symtab.Fold(n)] = true
		}
	}
}

// WithExtra registers host-specific built-ins alongside the standard library.
func WithExtra(ds ...*callable.Descriptor) Option {
	return func(o *options) {
		o.extra = append(o.extra, ds...)
	}
}

// Register adds the standard library to reg. A name clash is reported as an error and
// should abort startup.
func Register(reg *registry.Registry, opts ...Option) error {
	o := &options{exclude: make(map[string]bool)}
	for _, opt := range opts {
		opt(o)
	}

	known := make(map[string]bool)
	for _, m := range Modules() {
		known[m.Name] = true
	}
	for name := range o.only {
		if !known[name] {
			return fmt.Errorf("unknown module %q", name)
		}
	}
	for name := range o.exclude {
		if !known[name] {
			return fmt.Errorf("unknown module %q", name)
		}
	}

	for _, m := range Modules() {
		if o.exclude[m.Name] || (o.only != nil && !o.only[m.Name]) {
			continue
		}
		if err := reg.RegisterAll(m.Descriptors(reg)...); err != nil {
			return fmt.Errorf("register module %s: %w", m.Name, err)
		}
	}
	if err := reg.RegisterAll(o.extra...); err != nil {
		return fmt.Errorf("register host built-ins: %w", err)
	}
	return nil
}
