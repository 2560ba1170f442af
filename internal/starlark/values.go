package starlark

import (
	"fmt"
	"math"

	"github.com/leapstack-labs/leapbasic/pkg/value"
	"go.starlark.net/starlark"
)

// ToValue converts a Starlark value to a runtime value.
// Lists and tuples become arrays; nested sequences must be rectangular and hold a
// single scalar kind, with integers widening to doubles when both appear.
func ToValue(v starlark.Value) (value.Value, error) {
	switch v := v.(type) {
	case starlark.Bool:
		return value.Bool(bool(v)), nil
	case starlark.Int:
		i, ok := v.Int64()
		if !ok || i < math.MinInt32 || i > math.MaxInt32 {
			return value.Value{}, fmt.Errorf("integer %s does not fit in INTEGER", v.String())
		}
		return value.Int(int32(i)), nil
	case starlark.Float:
		return value.Float(float64(v)), nil
	case starlark.String:
		return value.Str(string(v)), nil
	case starlark.Indexable:
		return toArray(v)
	case starlark.NoneType:
		return value.Value{}, fmt.Errorf("None has no BASIC equivalent")
	}
	return value.Value{}, fmt.Errorf("cannot convert %s to a BASIC value", v.Type())
}

// ToValues converts a Starlark argument tuple.
func ToValues(args starlark.Tuple) ([]value.Value, error) {
	vals := make([]value.Value, len(args))
	for i, arg := range args {
		v, err := ToValue(arg)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func toArray(seq starlark.Indexable) (value.Value, error) {
	var dims []int
	var elem value.Kind
	var leaves []value.Value

	var walk func(v starlark.Value, depth int) error
	walk = func(v starlark.Value, depth int) error {
		inner, nested := v.(starlark.Indexable)
		if _, ok := v.(starlark.String); ok {
			nested = false
		}
		if !nested {
			if depth != len(dims) {
				return fmt.Errorf("array is not rectangular")
			}
			leaf, err := ToValue(v)
			if err != nil {
				return err
			}
			kind, err := joinKinds(elem, leaf.Kind())
			if err != nil {
				return err
			}
			elem = kind
			leaves = append(leaves, leaf)
			return nil
		}
		n := inner.Len()
		switch {
		case depth == len(dims):
			if len(leaves) > 0 {
				return fmt.Errorf("array is not rectangular")
			}
			if n == 0 {
				return fmt.Errorf("arrays cannot have an empty dimension")
			}
			dims = append(dims, n)
		case dims[depth] != n:
			return fmt.Errorf("array is not rectangular")
		}
		for i := range n {
			if err := walk(inner.Index(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(seq, 0); err != nil {
		return value.Value{}, err
	}

	arr, err := value.NewArray(elem, dims...)
	if err != nil {
		return value.Value{}, err
	}
	subs := make([]int, len(dims))
	for _, leaf := range leaves {
		if err := arr.Assign(leaf, subs...); err != nil {
			return value.Value{}, err
		}
		for d := len(subs) - 1; d >= 0; d-- {
			subs[d]++
			if subs[d] < dims[d] {
				break
			}
			subs[d] = 0
		}
	}
	return value.FromArray(arr), nil
}

func joinKinds(have, got value.Kind) (value.Kind, error) {
	switch {
	case got == value.Array:
		return 0, fmt.Errorf("array is not rectangular")
	case have == value.Void, have == got:
		return got, nil
	case have == value.Integer && got == value.Double, have == value.Double && got == value.Integer:
		return value.Double, nil
	default:
		return 0, fmt.Errorf("array mixes %s and %s elements", have, got)
	}
}

// FromValue converts a runtime value to Starlark. Void becomes None and arrays become
// nested lists.
func FromValue(v value.Value) starlark.Value {
	switch v.Kind() {
	case value.Boolean:
		b, _ := v.AsBool()
		return starlark.Bool(b)
	case value.Double:
		d, _ := v.AsFloat()
		return starlark.Float(d)
	case value.Integer:
		i, _ := v.AsInt()
		return starlark.MakeInt(int(i))
	case value.Text:
		s, _ := v.AsText()
		return starlark.String(s)
	case value.Array:
		arr, _ := v.AsArray()
		return fromArray(arr, arr.Dims(), nil)
	default:
		return starlark.None
	}
}

func fromArray(arr *value.ArrayData, dims []int, prefix []int) starlark.Value {
	depth := len(prefix)
	elems := make([]starlark.Value, dims[depth])
	for i := range elems {
		subs := append(append([]int(nil), prefix...), i)
		if depth == len(dims)-1 {
			v, _ := arr.Index(subs...)
			elems[i] = FromValue(v)
			continue
		}
		elems[i] = fromArray(arr, dims, subs)
	}
	return starlark.NewList(elems)
}
