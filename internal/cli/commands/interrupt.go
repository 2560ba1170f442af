package commands

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"
)

// interrupter is what a CTRL+C is delivered to while work runs.
type interrupter interface {
	Interrupt()
}

// runInterruptible runs work while forwarding SIGINT to target. It returns work's error
// once work and the forwarder have both stopped.
func runInterruptible(ctx context.Context, target interrupter, work func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt)
		defer signal.Stop(sigs)
		for {
			select {
			case <-sigs:
				target.Interrupt()
			case <-done:
				return nil
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		defer close(done)
		return work(ctx)
	})

	return g.Wait()
}
