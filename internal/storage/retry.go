package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapbasic/pkg/capability"
	"github.com/sethvargo/go-retry"
)

// Retrying wraps a drive whose operations may fail transiently (a busy database, a
// flaky network share) and retries them with exponential backoff. Missing files and
// cancellations are never retried.
type Retrying struct {
	fs      capability.FileSystem
	backoff func() retry.Backoff
	logger  *slog.Logger
}

// NewRetrying retries each operation of fs up to attempts-1 more times, starting with a
// delay of base.
func NewRetrying(fs capability.FileSystem, attempts int, base time.Duration, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if attempts < 1 {
		attempts = 1
	}
	if base <= 0 {
		base = 10 * time.Millisecond
	}
	return &Retrying{
		fs: fs,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(base))
		},
		logger: logger,
	}
}

func (r *Retrying) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	return retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil || errors.Is(err, capability.ErrNotFound) || ctx.Err() != nil {
			return err
		}
		r.logger.Debug("storage operation failed", "op", op, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
}

// List implements capability.FileSystem.
func (r *Retrying) List(ctx context.Context) ([]capability.FileInfo, error) {
	var infos []capability.FileInfo
	err := r.do(ctx, "list", func(ctx context.Context) (err error) {
		infos, err = r.fs.List(ctx)
		return err
	})
	return infos, err
}

// Get implements capability.FileSystem.
func (r *Retrying) Get(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := r.do(ctx, "get", func(ctx context.Context) (err error) {
		data, err = r.fs.Get(ctx, name)
		return err
	})
	return data, err
}

// Put implements capability.FileSystem.
func (r *Retrying) Put(ctx context.Context, name string, data []byte) error {
	return r.do(ctx, "put", func(ctx context.Context) error {
		return r.fs.Put(ctx, name, data)
	})
}

// Delete implements capability.FileSystem.
func (r *Retrying) Delete(ctx context.Context, name string) error {
	return r.do(ctx, "delete", func(ctx context.Context) error {
		return r.fs.Delete(ctx, name)
	})
}

// Close closes the wrapped drive if it can be closed.
func (r *Retrying) Close() error {
	if c, ok := r.fs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
