package capabilitytest

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/symtab"
	"github.com/leapstack-labs/leapbasic/pkg/value"
)

// Find returns the descriptor called name from ds. It panics if there is none, which
// only happens when a test refers to a built-in that does not exist.
func Find(ds []*callable.Descriptor, name string) *callable.Descriptor {
	for _, d := range ds {
		if symtab.Fold(d.Name()) == symtab.Fold(name) {
			return d
		}
	}
	panic(fmt.Sprintf("no built-in named %s", name))
}

// Run checks args against d and runs it against the fakes. Awaited operations run inline
// on the calling goroutine.
func (c *Capabilities) Run(ctx context.Context, d *callable.Descriptor, args ...value.Value) (value.Value, error) {
	if err := d.Check(args); err != nil {
		return value.Value{}, err
	}
	return d.Run(callable.NewInvocation(ctx, d.Name(), args, c.Capabilities, nil, nil))
}
