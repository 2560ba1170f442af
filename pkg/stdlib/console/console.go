// Package console provides the built-ins that drive the text console.
package console

import (
	"context"
	"strings"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/capability"
	"github.com/leapstack-labs/leapbasic/pkg/value"
)

// Category is the help category of every built-in in this package.
const Category = "Console"

// DefaultPrompt is what INPUT$ shows when called without a prompt.
const DefaultPrompt = "? "

// Descriptors returns the console built-ins.
func Descriptors() []*callable.Descriptor {
	return []*callable.Descriptor{
		callable.NewCommand(callable.Metadata{
			Name:        "CLS",
			Category:    Category,
			Description: "Clears the screen and moves the cursor to the top-left corner.",
		}, callable.CommandFunc(cls)),
		callable.NewCommand(callable.Metadata{
			Name:     "COLOR",
			Category: Category,
			Description: "Sets the foreground and background colors.\n" +
				"Colors are ANSI numbers between 0 and 255. Without arguments, both colors are " +
				"reset to the terminal defaults; a missing background keeps the default background.",
			Params: []callable.Param{
				{Name: "fg", Type: value.Integer, Optional: true},
				{Name: "bg", Type: value.Integer, Optional: true},
			},
		}, callable.CommandFunc(color)),
		callable.NewCommand(callable.Metadata{
			Name:        "LOCATE",
			Category:    Category,
			Description: "Moves the cursor to the given 0-based column and row.",
			Params: []callable.Param{
				{Name: "column", Type: value.Integer},
				{Name: "row", Type: value.Integer},
			},
		}, callable.CommandFunc(locate)),
		callable.NewCommand(callable.Metadata{
			Name:     "PRINT",
			Category: Category,
			Description: "Prints its arguments separated by a space and ends the line.\n" +
				"Without arguments, prints an empty line.",
			Params: []callable.Param{{Name: "expr", Type: value.Void, Repeated: true}},
		}, callable.CommandFunc(printLine)),
		callable.NewFunction(callable.Metadata{
			Name:     "INKEY",
			Category: Category,
			Description: "Returns the next key press without waiting, or an empty string.\n" +
				"Special keys are reported by name: UP, DOWN, LEFT, RIGHT, ENTER, ESC, TAB, BS, " +
				"HOME, END, PGUP and PGDOWN.",
		}, value.Text, callable.FunctionFunc(inkey)),
		callable.NewFunction(callable.Metadata{
			Name:        "INPUT",
			Category:    Category,
			Description: "Shows a prompt and waits for the user to enter a line of text.",
			Params:      []callable.Param{{Name: "prompt", Type: value.Text, Optional: true}},
		}, value.Text, callable.FunctionFunc(input)),
		callable.NewFunction(callable.Metadata{
			Name:        "SCRCOLS",
			Category:    Category,
			Description: "Returns the number of columns of the console.",
		}, value.Integer, callable.FunctionFunc(func(inv *callable.Invocation) (value.Value, error) {
			return size(inv, func(xy capability.XY) int { return xy.X })
		})),
		callable.NewFunction(callable.Metadata{
			Name:        "SCRROWS",
			Category:    Category,
			Description: "Returns the number of rows of the console.",
		}, value.Integer, callable.FunctionFunc(func(inv *callable.Invocation) (value.Value, error) {
			return size(inv, func(xy capability.XY) int { return xy.Y })
		})),
	}
}

func cls(inv *callable.Invocation) error {
	con, err := inv.Console()
	if err != nil {
		return err
	}
	if err := con.Clear(capability.ClearAll); err != nil {
		return callable.NewIOError(inv.Name, err)
	}
	return nil
}

func colorArg(inv *callable.Invocation, i int) (capability.Color, error) {
	if !inv.Has(i) {
		return capability.NoColor, nil
	}
	n, err := inv.Int(i)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 255 {
		return 0, inv.ValueErrorf(i, "color out of range: %d", n)
	}
	return capability.Color(n), nil
}

func color(inv *callable.Invocation) error {
	fg, err := colorArg(inv, 0)
	if err != nil {
		return err
	}
	bg, err := colorArg(inv, 1)
	if err != nil {
		return err
	}
	con, err := inv.Console()
	if err != nil {
		return err
	}
	if err := con.SetColor(fg, bg); err != nil {
		return callable.NewIOError(inv.Name, err)
	}
	return nil
}

func locate(inv *callable.Invocation) error {
	col, err := inv.Int(0)
	if err != nil {
		return err
	}
	row, err := inv.Int(1)
	if err != nil {
		return err
	}
	if col < 0 {
		return inv.ValueErrorf(0, "column cannot be negative")
	}
	if row < 0 {
		return inv.ValueErrorf(1, "row cannot be negative")
	}
	con, err := inv.Console()
	if err != nil {
		return err
	}
	sz, err := con.Size()
	if err != nil {
		return callable.NewIOError(inv.Name, err)
	}
	if int(col) >= sz.X {
		return inv.ValueErrorf(0, "column %d exceeds visible range of %d", col, sz.X-1)
	}
	if int(row) >= sz.Y {
		return inv.ValueErrorf(1, "row %d exceeds visible range of %d", row, sz.Y-1)
	}
	if err := con.Locate(capability.XY{X: int(col), Y: int(row)}); err != nil {
		return callable.NewIOError(inv.Name, err)
	}
	return nil
}

func printLine(inv *callable.Invocation) error {
	con, err := inv.Console()
	if err != nil {
		return err
	}
	parts := make([]string, len(inv.Args))
	for i, arg := range inv.Args {
		parts[i] = arg.String()
	}
	if err := con.Print(strings.Join(parts, " ")); err != nil {
		return callable.NewIOError(inv.Name, err)
	}
	return nil
}

func inkey(inv *callable.Invocation) (value.Value, error) {
	// Programs poll INKEY$ in tight loops; yielding lets a break get through.
	if err := callable.Yield(inv); err != nil {
		return value.Value{}, err
	}
	con, err := inv.Console()
	if err != nil {
		return value.Value{}, err
	}
	key, ok, err := con.PollKey()
	if err != nil {
		return value.Value{}, callable.NewIOError(inv.Name, err)
	}
	if !ok {
		return value.Str(""), nil
	}
	if key.Code == capability.KeyInterrupt {
		return value.Value{}, callable.NewCancelledError(inv.Name, nil)
	}
	return value.Str(key.Name()), nil
}

func input(inv *callable.Invocation) (value.Value, error) {
	prompt := DefaultPrompt
	if inv.Has(0) {
		prompt = inv.Text(0)
	}
	con, err := inv.Console()
	if err != nil {
		return value.Value{}, err
	}
	line, err := callable.Await(inv, func(ctx context.Context) (string, error) {
		return con.ReadLine(ctx, prompt)
	})
	if err != nil {
		return value.Value{}, err
	}
	return value.Str(line), nil
}

func size(inv *callable.Invocation, pick func(capability.XY) int) (value.Value, error) {
	con, err := inv.Console()
	if err != nil {
		return value.Value{}, err
	}
	sz, err := con.Size()
	if err != nil {
		return value.Value{}, callable.NewIOError(inv.Name, err)
	}
	return value.Int(int32(pick(sz))), nil
}
