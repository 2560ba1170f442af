package commands

import (
	"context"

	"github.com/leapstack-labs/leapbasic/pkg/value"
	"github.com/spf13/cobra"
)

// callResult is the structured output of the call command.
type callResult struct {
	Name  string `json:"name" yaml:"name"`
	Kind  string `json:"kind" yaml:"kind"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// NewCallCommand creates the call command.
func NewCallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <name> [args...]",
		Short: "Invoke a single built-in",
		Long: `Invoke one built-in with literal arguments and print its result.

Arguments are BASIC literals: 42 is an INTEGER, 4.2 a DOUBLE, TRUE a BOOLEAN
and "text" a STRING. Anything that is not a valid literal is passed as a STRING.
Names may carry a type suffix to require a return type, as in LEFT$.`,
		Example: `  leapbasic call LEFT '"hello"' 2
  leapbasic call SQR 2
  leapbasic call RND --seed 7 -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, args[0], args[1:])
		},
	}
	return cmd
}

func runCall(cmd *cobra.Command, name string, rawArgs []string) error {
	ref, err := value.ParseRef(name)
	if err != nil {
		return err
	}

	args := make([]value.Value, len(rawArgs))
	for i, raw := range rawArgs {
		v, err := value.ParseLiteral(raw)
		if err != nil {
			v = value.Str(raw)
		}
		args[i] = v
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var result value.Value
	err = runInterruptible(cmd.Context(), cc.Evaluator, func(ctx context.Context) error {
		var err error
		result, err = cc.Machine.InvokeRef(ctx, ref, args)
		return err
	})
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.Structured() {
		out := callResult{Name: ref.String(), Kind: result.Kind().String()}
		if !result.IsVoid() {
			out.Value = plainValue(result)
		}
		return r.Data(out)
	}
	if !result.IsVoid() {
		r.Println(result.String())
	}
	return nil
}

// plainValue converts v for JSON and YAML encoding.
func plainValue(v value.Value) any {
	switch v.Kind() {
	case value.Boolean:
		b, _ := v.AsBool()
		return b
	case value.Double:
		d, _ := v.AsFloat()
		return d
	case value.Integer:
		i, _ := v.AsInt()
		return i
	case value.Text:
		s, _ := v.AsText()
		return s
	case value.Array:
		arr, _ := v.AsArray()
		return plainArray(arr, nil)
	default:
		return nil
	}
}

func plainArray(arr *value.ArrayData, prefix []int) any {
	dims := arr.Dims()
	n := dims[len(prefix)]
	out := make([]any, n)
	for i := range n {
		sub := append(append([]int(nil), prefix...), i)
		if len(sub) < len(dims) {
			out[i] = plainArray(arr, sub)
			continue
		}
		if elem, err := arr.Index(sub...); err == nil {
			out[i] = plainValue(elem)
		}
	}
	return out
}
