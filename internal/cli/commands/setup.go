package commands

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapbasic/internal/cli/config"
	"github.com/leapstack-labs/leapbasic/internal/cli/output"
	"github.com/leapstack-labs/leapbasic/internal/starlark"
	"github.com/leapstack-labs/leapbasic/internal/storage"
	"github.com/leapstack-labs/leapbasic/internal/terminal"
	"github.com/leapstack-labs/leapbasic/pkg/bridge"
	"github.com/leapstack-labs/leapbasic/pkg/capability"
	"github.com/leapstack-labs/leapbasic/pkg/registry"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Renderer  *output.Renderer
	Registry  *registry.Registry
	Console   *terminal.Console
	Drives    *storage.Drives
	Machine   *bridge.Machine
	Evaluator *starlark.Evaluator
}

type setupOptions struct {
	in    io.Reader
	lines terminal.LineReader
}

// SetupOption customizes NewCommandContext.
type SetupOption func(*setupOptions)

// withInput sets the console input instead of the command's stdin.
func withInput(r io.Reader) SetupOption {
	return func(o *setupOptions) { o.in = r }
}

// withLineReader makes the console read lines through r, so that INPUT shares the
// REPL's editing and history.
func withLineReader(r terminal.LineReader) SetupOption {
	return func(o *setupOptions) { o.lines = r }
}

// NewCommandContextWithoutMachine creates a CommandContext that only has the registry.
// Useful for commands that inspect built-ins without running them.
func NewCommandContextWithoutMachine(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	reg, err := newRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}
	reg.Seal()

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
		Registry: reg,
	}, nil
}

// NewCommandContext creates a CommandContext with mounted drives, a console on the
// command's streams, the execution bridge and a Starlark evaluator.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command, opts ...SetupOption) (*CommandContext, func(), error) {
	o := &setupOptions{in: cmd.InOrStdin()}
	for _, opt := range opts {
		opt(o)
	}

	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	logger := config.GetLogger(ctx)

	reg, err := newRegistry(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	drives, err := storage.OpenDrives(ctx, cfg.Storage.Drives, cfg.Storage.DefaultDrive, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to mount drives: %w", err)
	}

	cc := &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
		Registry: reg,
		Drives:   drives,
	}

	consoleOpts := []terminal.Option{
		terminal.WithLogger(logger),
		terminal.WithSize(cfg.Console.Columns, cfg.Console.Lines),
		terminal.WithInterruptHandler(func() { cc.Evaluator.Interrupt() }),
	}
	if o.lines != nil {
		consoleOpts = append(consoleOpts, terminal.WithLineReader(o.lines))
	}
	cc.Console = terminal.New(o.in, cmd.OutOrStdout(), consoleOpts...)

	seed := cfg.Random.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	caps := &capability.Capabilities{
		Console: cc.Console,
		Files:   drives,
		Clock:   capability.SystemClock{},
		Rand:    capability.NewRand(seed),
		Program: capability.NewProgram(),
	}

	cc.Machine = bridge.New(reg, caps, bridge.WithLogger(logger))
	cc.Evaluator = starlark.New(cc.Machine, starlark.WithLogger(logger))

	cleanup := func() {
		if err := cc.Console.Close(); err != nil {
			logger.Warn("failed to restore terminal", "error", err)
		}
		if err := drives.Close(); err != nil {
			logger.Warn("failed to close drives", "error", err)
		}
	}
	return cc, cleanup, nil
}

func newRegistry(cfg *config.Config, logger *slog.Logger) (*registry.Registry, error) {
	reg := registry.New(registry.WithLogger(logger))
	var opts []stdlib.Option
	if len(cfg.Modules) > 0 {
		opts = append(opts, stdlib.WithModules(cfg.Modules...))
	}
	if err := stdlib.Register(reg, opts...); err != nil {
		return nil, fmt.Errorf("failed to register built-ins: %w", err)
	}
	return reg, nil
}
