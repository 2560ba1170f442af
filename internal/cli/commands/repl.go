package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapbasic/internal/cli/config"
	"github.com/leapstack-labs/leapbasic/internal/terminal"
	"github.com/leapstack-labs/leapbasic/pkg/capability"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib/help"
	"github.com/spf13/cobra"
	"go.starlark.net/starlark"
	"golang.org/x/term"
)

const continuationPrompt = "... "

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "repl",
		Aliases: []string{"shell"},
		Short:   "Start an interactive Starlark session with the built-ins",
		Long: `Start an interactive session. Each line is a Starlark statement or expression;
compound statements continue until a blank line. Expression values are printed.

Variables follow BASIC rules: names ignore case and keep the type of their first
assignment, so x = 2.6 stores 3 when x already holds an INTEGER.

Press CTRL+C to interrupt a running statement and CTRL+D to leave.
Type .help for REPL commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd)
		},
	}
}

// lineSource is the REPL input: readline on a terminal, plain lines otherwise.
type lineSource interface {
	terminal.LineReader
	Close() error
}

type plainSource struct {
	terminal.LineReader
}

func (plainSource) Close() error { return nil }

func newLineSource(cmd *cobra.Command, cfg *config.Config, comp readline.AutoCompleter) (lineSource, bool, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          cfg.REPL.Prompt,
			HistoryFile:     cfg.REPL.HistoryFile,
			AutoComplete:    comp,
			InterruptPrompt: "^C",
			EOFPrompt:       ".quit",
		})
		if err != nil {
			return nil, false, fmt.Errorf("failed to initialize REPL: %w", err)
		}
		return rl, true, nil
	}
	return plainSource{terminal.NewLineReader(in, cmd.OutOrStdout())}, false, nil
}

func runREPL(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)

	comp := &completer{}
	lines, interactive, err := newLineSource(cmd, cfg, comp)
	if err != nil {
		return err
	}
	defer func() { _ = lines.Close() }()

	cc, cleanup, err := NewCommandContext(cmd, withLineReader(lines))
	if err != nil {
		return err
	}
	defer cleanup()
	comp.reg = cc.Registry
	comp.vars = cc.Evaluator.Variables()

	r := cc.Renderer
	if interactive {
		r.Header("LeapBASIC REPL")
		r.Muted("drive %s, %d built-ins. Type .help for commands, .quit to exit", cc.Drives.Current(), cc.Registry.Len())
		r.Println()
	}

	for {
		line, err := cc.Console.NextLine(cfg.REPL.Prompt)
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ".") {
			if quit := handleDotCommand(cc, trimmed); quit {
				break
			}
			continue
		}

		evalChunk(ctx, cc, line)
	}
	return nil
}

// evalChunk runs the statement starting with first, reading continuation lines as the
// parser asks for them. Every line goes through the console, which also serves INPUT.
func evalChunk(ctx context.Context, cc *CommandContext, first string) {
	pending := []byte(first + "\n")
	aborted := false
	read := func() ([]byte, error) {
		if pending != nil {
			l := pending
			pending = nil
			return l, nil
		}
		l, err := cc.Console.NextLine(continuationPrompt)
		if errors.Is(err, readline.ErrInterrupt) {
			aborted = true
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		return []byte(l + "\n"), nil
	}

	var result starlark.Value
	err := runInterruptible(ctx, cc.Evaluator, func(ctx context.Context) error {
		var err error
		result, err = cc.Evaluator.Chunk(ctx, read)
		return err
	})
	switch {
	case aborted:
	case err != nil:
		cc.Renderer.Error(err)
	case result != nil && result != starlark.None:
		cc.Renderer.Println(result.String())
	}
}

// handleDotCommand runs a REPL command. It reports whether the session should end.
func handleDotCommand(cc *CommandContext, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]
	r := cc.Renderer

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.Writer())

	case ".vars":
		rows := [][]string{}
		for name, v := range cc.Evaluator.Variables().Prefix("") {
			rows = append(rows, []string{name, v.Kind().String(), v.Literal()})
		}
		if len(rows) == 0 {
			r.Muted("No variables defined")
			return false
		}
		r.Table([]string{"Name", "Type", "Value"}, rows)

	case ".builtins":
		prefix := ""
		if len(args) > 0 {
			prefix = args[0]
		}
		var rows [][]string
		for name, d := range cc.Registry.PrefixSearch(prefix) {
			rows = append(rows, []string{name + d.Returns().Suffix(), d.Summary()})
		}
		if len(rows) == 0 {
			r.Muted("No built-ins match %q", prefix)
			return false
		}
		r.Table([]string{"Name", "Summary"}, rows)

	case ".describe":
		if len(args) == 0 {
			for _, l := range help.Summary(cc.Registry) {
				r.Println(l)
			}
			return false
		}
		page, err := help.Topic(cc.Registry, strings.Join(args, " "))
		if err != nil {
			r.Error(err)
			return false
		}
		for _, l := range page {
			r.Println(l)
		}

	case ".drives":
		current := cc.Drives.Current()
		for _, name := range cc.Drives.Names() {
			marker := " "
			if name == current {
				marker = "*"
			}
			r.Printf("%s %s\n", marker, name)
		}

	case ".drive":
		if len(args) != 1 {
			r.Error(errors.New("usage: .drive <name>"))
			return false
		}
		if err := cc.Drives.SetCurrent(args[0]); err != nil {
			r.Error(err)
		}

	case ".reset":
		cc.Evaluator.Reset()
		r.Success("Session cleared")

	case ".clear":
		if err := cc.Console.Clear(capability.ClearAll); err != nil {
			r.Error(err)
		}

	default:
		r.Error(fmt.Errorf("unknown command: %s (type .help for commands)", command))
	}
	return false
}

// DotCommand describes a REPL command.
type DotCommand struct {
	Usage   string
	Summary string
}

// Name returns the command word, such as ".drive".
func (d DotCommand) Name() string {
	return strings.Fields(d.Usage)[0]
}

// DotCommands lists the REPL commands in help order.
func DotCommands() []DotCommand {
	return []DotCommand{
		{".help", "Show this help message"},
		{".vars", "List session variables"},
		{".builtins [prefix]", "List built-ins"},
		{".describe [topic]", "Show help for a built-in or category"},
		{".drives", "List mounted drives (* marks the current one)"},
		{".drive <name>", "Change the current drive"},
		{".reset", "Forget all session variables"},
		{".clear", "Clear the screen"},
		{".quit", "Exit the REPL (.exit works too)"},
	}
}

func printREPLHelp(w io.Writer) {
	var b strings.Builder
	b.WriteString("\nCommands:\n")
	for _, d := range DotCommands() {
		fmt.Fprintf(&b, "  %-19s%s\n", d.Usage, d.Summary)
	}
	b.WriteString(`
Tips:
  - Built-ins are called by name: PRINT("hi"), LEFT("hello", 2)
  - CALL("LEFT$", "abc", 1) requires a typed result
  - End compound statements (for, if, def) with a blank line
  - Tab completes built-in and variable names
`)
	_, _ = fmt.Fprintln(w, b.String())
}
