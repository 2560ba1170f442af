package value

import (
	"fmt"
	"strings"
)

// ArrayData is a multidimensional array of a single scalar kind stored in row-major order.
type ArrayData struct {
	elem   Kind
	dims   []int
	values []Value
}

// NewArray creates an array of the given element kind and dimensions, with every element
// set to the zero value of elem.
func NewArray(elem Kind, dims ...int) (*ArrayData, error) {
	if elem == Void || elem == Array {
		return nil, fmt.Errorf("arrays of %s are not supported", elem)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("arrays need at least one dimension")
	}
	size := 1
	for i, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("dimension %d must be positive, got %d", i+1, d)
		}
		size *= d
	}
	values := make([]Value, size)
	zero := Zero(elem)
	for i := range values {
		values[i] = zero
	}
	return &ArrayData{elem: elem, dims: append([]int(nil), dims...), values: values}, nil
}

// Zero returns the default value of a scalar kind.
func Zero(k Kind) Value {
	switch k {
	case Boolean:
		return Bool(false)
	case Double:
		return Float(0)
	case Integer:
		return Int(0)
	case Text:
		return Str("")
	default:
		return Value{}
	}
}

// Elem returns the element kind.
func (a *ArrayData) Elem() Kind { return a.elem }

// Dims returns a copy of the dimensions.
func (a *ArrayData) Dims() []int { return append([]int(nil), a.dims...) }

// Rank returns the number of dimensions.
func (a *ArrayData) Rank() int { return len(a.dims) }

func (a *ArrayData) offset(subscripts []int) (int, error) {
	if len(subscripts) != len(a.dims) {
		return 0, fmt.Errorf("cannot index array with %d subscripts; need %d", len(subscripts), len(a.dims))
	}
	off := 0
	for i, s := range subscripts {
		if s < 0 || s >= a.dims[i] {
			return 0, fmt.Errorf("subscript %d out of range for dimension %d", s, i+1)
		}
		off = off*a.dims[i] + s
	}
	return off, nil
}

// Index returns the element at the given subscripts.
func (a *ArrayData) Index(subscripts ...int) (Value, error) {
	off, err := a.offset(subscripts)
	if err != nil {
		return Value{}, err
	}
	return a.values[off], nil
}

// Assign stores v at the given subscripts. v must match the element kind, except that
// integers and doubles convert into each other.
func (a *ArrayData) Assign(v Value, subscripts ...int) error {
	off, err := a.offset(subscripts)
	if err != nil {
		return err
	}
	conv, err := Convert(v, a.elem)
	if err != nil {
		return err
	}
	a.values[off] = conv
	return nil
}

// String renders the array shape, e.g. "INTEGER(3, 2)".
func (a *ArrayData) String() string {
	parts := make([]string, len(a.dims))
	for i, d := range a.dims {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return fmt.Sprintf("%s(%s)", a.elem, strings.Join(parts, ", "))
}

// Convert adapts v to kind k following assignment rules: numeric kinds convert into each
// other and everything else must match exactly.
func Convert(v Value, k Kind) (Value, error) {
	if v.kind == k {
		return v, nil
	}
	switch {
	case k == Double && v.kind == Integer:
		return Float(float64(v.i)), nil
	case k == Integer && v.kind == Double:
		i, err := v.ToInt()
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil
	default:
		return Value{}, fmt.Errorf("cannot assign %s to %s", v.kind, k)
	}
}
