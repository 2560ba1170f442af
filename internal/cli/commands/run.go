package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file.star>",
		Short: "Run a Starlark script against the built-ins",
		Long: `Run a Starlark script. Every built-in is available under its own name
(PRINT, LEFT, RND, ...) and through CALL("NAME$", args...) when a typed
reference is needed. Use "-" to read the script from standard input.

Press CTRL+C to interrupt the script. The configured script.timeout, if any,
stops scripts that run for too long. With --watch the script runs again every
time its file changes.`,
		Example: `  # Run a script
  leapbasic run hello.star

  # Run with a fixed RND seed and a time limit
  leapbasic run --seed 42 --timeout 10s game.star

  # Re-run on every save
  leapbasic run --watch game.star

  # Pipe a script in
  echo 'PRINT(LEFT("hello", 2))' | leapbasic run -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, args[0])
		},
	}

	cmd.Flags().Duration("timeout", 0, "Stop the script after this long (0 for no limit)")
	cmd.Flags().BoolP("watch", "w", false, "Run the script again whenever its file changes")

	return cmd
}

func runScript(cmd *cobra.Command, path string) error {
	watch, _ := cmd.Flags().GetBool("watch")
	if watch && path == "-" {
		return fmt.Errorf("cannot watch a script read from stdin")
	}
	src, err := readScript(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	// Scripts own stdin only when it is not the script itself.
	var opts []SetupOption
	if path == "-" {
		opts = append(opts, withInput(eofReader{}))
	}
	cc, cleanup, err := NewCommandContext(cmd, opts...)
	if err != nil {
		return err
	}
	defer cleanup()

	timeout := cc.Cfg.Script.Timeout
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		timeout, _ = cmd.Flags().GetDuration("timeout")
	}

	run := func(ctx context.Context, src []byte) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return runInterruptible(ctx, cc.Evaluator, func(ctx context.Context) error {
			_, err := cc.Evaluator.ExecFile(ctx, path, src)
			return err
		})
	}

	cc.Logger.Debug("running script", "path", path, "timeout", timeout, "watch", watch)
	if watch {
		return watchScript(cmd.Context(), cc, path, run)
	}
	return run(cmd.Context(), src)
}

func readScript(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		src, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read script from stdin: %w", err)
		}
		return src, nil
	}
	src, err := os.ReadFile(path) //nolint:gosec // user-provided script path
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return src, nil
}

// eofReader is the console input of scripts read from stdin.
type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
