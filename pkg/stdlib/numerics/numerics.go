// Package numerics provides math and random number built-ins.
package numerics

import (
	"math"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/value"
)

// Category is the help category of every built-in in this package.
const Category = "Numerical functions"

func unary(name, description string, fn func(float64) float64) *callable.Descriptor {
	return callable.NewFunction(callable.Metadata{
		Name:        name,
		Category:    Category,
		Description: description,
		Params:      []callable.Param{{Name: "expr", Type: value.Double}},
	}, value.Double, callable.FunctionFunc(func(inv *callable.Invocation) (value.Value, error) {
		return value.Float(fn(inv.Float(0))), nil
	}))
}

// Descriptors returns the numeric built-ins.
func Descriptors() []*callable.Descriptor {
	return []*callable.Descriptor{
		unary("ABS", "Returns the absolute value of expr.", math.Abs),
		unary("ATN", "Computes the arc-tangent of expr, in radians.", math.Atan),
		unary("COS", "Computes the cosine of an angle given in radians.", math.Cos),
		unary("SIN", "Computes the sine of an angle given in radians.", math.Sin),
		unary("TAN", "Computes the tangent of an angle given in radians.", math.Tan),
		callable.NewFunction(callable.Metadata{
			Name:        "SQR",
			Category:    Category,
			Description: "Computes the square root of expr, which cannot be negative.",
			Params:      []callable.Param{{Name: "expr", Type: value.Double}},
		}, value.Double, callable.FunctionFunc(sqr)),
		callable.NewFunction(callable.Metadata{
			Name:     "INT",
			Category: Category,
			Description: "Rounds expr down to the closest integer.\n" +
				"Fails if the result does not fit in an integer.",
			Params: []callable.Param{{Name: "expr", Type: value.Double}},
		}, value.Integer, callable.FunctionFunc(intFn)),
		callable.NewFunction(callable.Metadata{
			Name:        "MAX",
			Category:    Category,
			Description: "Returns the largest of its arguments.",
			Params: []callable.Param{
				{Name: "expr", Type: value.Double},
				{Name: "expr", Type: value.Double, Repeated: true},
			},
			Syntax: "MAX#(expr1#[, ..., exprN#])",
		}, value.Double, callable.FunctionFunc(func(inv *callable.Invocation) (value.Value, error) {
			return fold(inv, math.Max), nil
		})),
		callable.NewFunction(callable.Metadata{
			Name:        "MIN",
			Category:    Category,
			Description: "Returns the smallest of its arguments.",
			Params: []callable.Param{
				{Name: "expr", Type: value.Double},
				{Name: "expr", Type: value.Double, Repeated: true},
			},
			Syntax: "MIN#(expr1#[, ..., exprN#])",
		}, value.Double, callable.FunctionFunc(func(inv *callable.Invocation) (value.Value, error) {
			return fold(inv, math.Min), nil
		})),
		callable.NewFunction(callable.Metadata{
			Name:        "PI",
			Category:    Category,
			Description: "Returns the value of pi.",
		}, value.Double, callable.FunctionFunc(func(*callable.Invocation) (value.Value, error) {
			return value.Float(math.Pi), nil
		})),
		callable.NewFunction(callable.Metadata{
			Name:     "RND",
			Category: Category,
			Description: "Returns a random number in the [0, 1) range.\n" +
				"Without an argument or with a positive n%, returns the next number of the " +
				"sequence. With zero, returns the previous number again. Use RANDOMIZE to " +
				"restart the sequence.",
			Params: []callable.Param{{Name: "n", Type: value.Integer, Optional: true}},
		}, value.Double, callable.FunctionFunc(rnd)),
		callable.NewCommand(callable.Metadata{
			Name:     "RANDOMIZE",
			Category: Category,
			Description: "Reseeds the random number generator.\n" +
				"Without a seed, the current time is used, which makes the sequence " +
				"unpredictable. With a seed, the sequence can be reproduced.",
			Params: []callable.Param{{Name: "seed", Type: value.Integer, Optional: true}},
		}, callable.CommandFunc(randomize)),
	}
}

func sqr(inv *callable.Invocation) (value.Value, error) {
	x := inv.Float(0)
	if x < 0 {
		return value.Value{}, inv.ValueErrorf(0, "cannot take square root of a negative number")
	}
	return value.Float(math.Sqrt(x)), nil
}

func intFn(inv *callable.Invocation) (value.Value, error) {
	n, err := value.Float(math.Floor(inv.Float(0))).ToInt()
	if err != nil {
		return value.Value{}, inv.ValueErrorf(0, "%v", err)
	}
	return value.Int(n), nil
}

func fold(inv *callable.Invocation, pick func(a, b float64) float64) value.Value {
	acc := inv.Float(0)
	for i := 1; i < len(inv.Args); i++ {
		acc = pick(acc, inv.Float(i))
	}
	return value.Float(acc)
}

func rnd(inv *callable.Invocation) (value.Value, error) {
	rng, err := inv.Rand()
	if err != nil {
		return value.Value{}, err
	}
	if !inv.Has(0) {
		return value.Float(rng.Next()), nil
	}
	n, err := inv.Int(0)
	if err != nil {
		return value.Value{}, err
	}
	switch {
	case n < 0:
		return value.Value{}, inv.ValueErrorf(0, "n%% cannot be negative")
	case n == 0:
		return value.Float(rng.Last()), nil
	default:
		return value.Float(rng.Next()), nil
	}
}

func randomize(inv *callable.Invocation) error {
	rng, err := inv.Rand()
	if err != nil {
		return err
	}
	if inv.Has(0) {
		seed, err := inv.Int(0)
		if err != nil {
			return err
		}
		rng.Seed(int64(seed))
		return nil
	}
	clock, err := inv.Clock()
	if err != nil {
		return err
	}
	rng.Seed(clock.Now().UnixNano())
	return nil
}
