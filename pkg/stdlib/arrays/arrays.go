// Package arrays provides built-ins that inspect arrays.
package arrays

import (
	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/value"
)

// Category is the help category of every built-in in this package.
const Category = "Array functions"

// Descriptors returns the array built-ins.
func Descriptors() []*callable.Descriptor {
	params := []callable.Param{
		{Name: "array", Type: value.Array},
		{Name: "dimension", Type: value.Integer, Optional: true},
	}
	return []*callable.Descriptor{
		callable.NewFunction(callable.Metadata{
			Name:     "LBOUND",
			Category: Category,
			Description: "Returns the lower bound of the given dimension of the array.\n" +
				"Arrays are 0-based, so this is always 0. The dimension is 1-based and may " +
				"only be omitted for one-dimensional arrays.",
			Params: params,
		}, value.Integer, callable.FunctionFunc(func(inv *callable.Invocation) (value.Value, error) {
			return bound(inv, func(int) int { return 0 })
		})),
		callable.NewFunction(callable.Metadata{
			Name:     "UBOUND",
			Category: Category,
			Description: "Returns the upper bound of the given dimension of the array.\n" +
				"The dimension is 1-based and may only be omitted for one-dimensional arrays.",
			Params: params,
		}, value.Integer, callable.FunctionFunc(func(inv *callable.Invocation) (value.Value, error) {
			return bound(inv, func(size int) int { return size - 1 })
		})),
	}
}

func bound(inv *callable.Invocation, pick func(size int) int) (value.Value, error) {
	arr, _ := inv.Args[0].AsArray()
	dims := arr.Dims()
	dim := 1
	if inv.Has(1) {
		n, err := inv.Int(1)
		if err != nil {
			return value.Value{}, err
		}
		if n < 1 || int(n) > len(dims) {
			return value.Value{}, inv.ValueErrorf(1, "dimension %d out of range 1 to %d", n, len(dims))
		}
		dim = int(n)
	} else if len(dims) > 1 {
		return value.Value{}, inv.ValueErrorf(0, "requires a dimension for multidimensional arrays")
	}
	return value.Int(int32(pick(dims[dim-1]))), nil
}
