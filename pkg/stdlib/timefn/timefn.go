// Package timefn provides built-ins that read the clock and wait.
package timefn

import (
	"context"
	"math"
	"time"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/value"
)

// Category is the help category of every built-in in this package.
const Category = "Time"

// Descriptors returns the time built-ins.
func Descriptors() []*callable.Descriptor {
	return []*callable.Descriptor{
		callable.NewCommand(callable.Metadata{
			Name:     "SLEEP",
			Category: Category,
			Description: "Suspends execution for the given number of seconds.\n" +
				"The wait can be interrupted with a break.",
			Params: []callable.Param{{Name: "seconds", Type: value.Double}},
		}, callable.CommandFunc(sleep)),
		callable.NewFunction(callable.Metadata{
			Name:        "DATE",
			Category:    Category,
			Description: "Returns the current local date as MM-DD-YYYY.",
		}, value.Text, callable.FunctionFunc(func(inv *callable.Invocation) (value.Value, error) {
			return format(inv, "01-02-2006")
		})),
		callable.NewFunction(callable.Metadata{
			Name:        "TIME",
			Category:    Category,
			Description: "Returns the current local time as HH:MM:SS.",
		}, value.Text, callable.FunctionFunc(func(inv *callable.Invocation) (value.Value, error) {
			return format(inv, "15:04:05")
		})),
		callable.NewFunction(callable.Metadata{
			Name:        "TIMER",
			Category:    Category,
			Description: "Returns the number of seconds elapsed since local midnight.",
		}, value.Double, callable.FunctionFunc(timer)),
	}
}

func sleep(inv *callable.Invocation) error {
	secs := inv.Float(0)
	if secs < 0 || math.IsNaN(secs) {
		return inv.ValueErrorf(0, "sleep time must be positive")
	}
	if secs > math.MaxInt64/float64(time.Second) {
		return inv.ValueErrorf(0, "sleep time too large")
	}
	clock, err := inv.Clock()
	if err != nil {
		return err
	}
	d := time.Duration(secs * float64(time.Second))
	return callable.Do(inv, func(ctx context.Context) error {
		return clock.Sleep(ctx, d)
	})
}

func format(inv *callable.Invocation, layout string) (value.Value, error) {
	clock, err := inv.Clock()
	if err != nil {
		return value.Value{}, err
	}
	return value.Str(clock.Now().Format(layout)), nil
}

func timer(inv *callable.Invocation) (value.Value, error) {
	clock, err := inv.Clock()
	if err != nil {
		return value.Value{}, err
	}
	now := clock.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return value.Float(now.Sub(midnight).Seconds()), nil
}
