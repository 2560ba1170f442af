// Package terminal implements the console capability on a text terminal.
//
// Output goes through termenv so that colors degrade gracefully on terminals that do not
// support them. Line input is delegated to a LineReader, which in interactive sessions is
// the REPL's readline instance so that history and editing are shared. Single key presses
// put the terminal in raw mode the first time they are requested.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapbasic/pkg/capability"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// LineReader reads one line of input. *readline.Instance implements it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// Option configures a Console.
type Option func(*Console)

// WithLineReader sets the reader used by ReadLine.
func WithLineReader(r LineReader) Option {
	return func(c *Console) { c.lines = r }
}

// WithSize sets the size reported when the output is not a terminal.
func WithSize(columns, lines int) Option {
	return func(c *Console) {
		if columns > 0 && lines > 0 {
			c.fallback = capability.XY{X: columns, Y: lines}
		}
	}
}

// WithInterruptHandler sets the function called when the user presses CTRL+C while the
// console owns the keyboard. Hosts use it to deliver a break to the running built-in.
func WithInterruptHandler(fn func()) Option {
	return func(c *Console) { c.onInterrupt = fn }
}

// WithProfile forces a color profile instead of detecting one.
func WithProfile(p termenv.Profile) Option {
	return func(c *Console) { c.profile = &p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type lineResult struct {
	line string
	err  error
}

// Console is a capability.Console on a terminal or on plain streams.
type Console struct {
	mu          sync.Mutex
	in          io.Reader
	out         *termenv.Output
	outFd       int
	tty         bool
	profile     *termenv.Profile
	fallback    capability.XY
	fg, bg      capability.Color
	lines       LineReader
	pending     chan lineResult
	keys        chan capability.Key
	keysErr     error
	rawState    *term.State
	onInterrupt func()
	logger      *slog.Logger
}

// New returns a console reading from in and writing to out. When both are terminals the
// console is interactive.
func New(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		in:       in,
		outFd:    -1,
		fallback: capability.XY{X: 80, Y: 24},
		fg:       capability.NoColor,
		bg:       capability.NoColor,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	inTTY := false
	if f, ok := in.(*os.File); ok {
		inTTY = term.IsTerminal(int(f.Fd()))
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.outFd = int(f.Fd())
		c.tty = inTTY
	}
	var outOpts []termenv.OutputOption
	if c.profile != nil {
		outOpts = append(outOpts, termenv.WithProfile(*c.profile))
	}
	c.out = termenv.NewOutput(out, outOpts...)
	if c.lines == nil {
		c.lines = NewLineReader(in, out)
	}
	return c
}

// Close restores the terminal mode if raw mode was enabled.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rawState == nil {
		return nil
	}
	err := term.Restore(int(c.in.(*os.File).Fd()), c.rawState)
	c.rawState = nil
	return err
}

func (c *Console) newline() string {
	if c.rawState != nil {
		return "\r\n"
	}
	return "\n"
}

// Print implements capability.Console.
func (c *Console) Print(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rawState != nil {
		text = strings.ReplaceAll(text, "\n", "\r\n")
	}
	_, err := c.out.WriteString(text + c.newline())
	return err
}

// Write implements capability.Console.
func (c *Console) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.out.WriteString(text)
	return err
}

// Clear implements capability.Console.
func (c *Console) Clear(how capability.ClearType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch how {
	case capability.ClearAll:
		c.out.ClearScreen()
	case capability.ClearCurrentLine:
		c.out.ClearLine()
		_, _ = c.out.WriteString("\r")
	case capability.ClearPreviousChar:
		c.out.CursorBack(1)
		_, _ = c.out.WriteString(" ")
		c.out.CursorBack(1)
	case capability.ClearUntilNewLine:
		c.out.ClearLineRight()
	default:
		return fmt.Errorf("unknown clear type %d", how)
	}
	return nil
}

// Color implements capability.Console.
func (c *Console) Color() (capability.Color, capability.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fg, c.bg
}

// SetColor implements capability.Console.
func (c *Console) SetColor(fg, bg capability.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out.Reset()
	for _, layer := range []struct {
		color capability.Color
		bg    bool
	}{{fg, false}, {bg, true}} {
		if layer.color == capability.NoColor {
			continue
		}
		seq := c.out.Convert(termenv.ANSI256Color(layer.color)).Sequence(layer.bg)
		if seq != "" {
			_, _ = c.out.WriteString(termenv.CSI + seq + "m")
		}
	}
	c.fg, c.bg = fg, bg
	return nil
}

// Locate implements capability.Console.
func (c *Console) Locate(pos capability.XY) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out.MoveCursor(pos.Y+1, pos.X+1)
	return nil
}

// Size implements capability.Console.
func (c *Console) Size() (capability.XY, error) {
	if c.outFd < 0 {
		return c.fallback, nil
	}
	w, h, err := term.GetSize(c.outFd)
	if err != nil {
		return capability.XY{}, fmt.Errorf("failed to get terminal size: %w", err)
	}
	return capability.XY{X: w, Y: h}, nil
}

// IsInteractive implements capability.Console.
func (c *Console) IsInteractive() bool {
	return c.tty
}

// ReadLine implements capability.Console. If ctx is cancelled while the user is typing,
// ReadLine returns at once and the line, when it arrives, goes to the next call of
// ReadLine or NextLine.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	line, err := c.readLine(ctx, prompt)
	if errors.Is(err, readline.ErrInterrupt) {
		return "", c.interrupted(ctx)
	}
	return line, err
}

// NextLine reads a line for the host. It shares the line reader with ReadLine, so a line
// typed after a cancelled ReadLine is returned here. CTRL+C is reported as
// readline.ErrInterrupt.
func (c *Console) NextLine(prompt string) (string, error) {
	return c.readLine(context.Background(), prompt)
}

// readLine is the only caller of the line reader's Readline. At most one read is in
// flight; a read left over by a cancelled call is taken over with the new prompt.
func (c *Console) readLine(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	if c.pending == nil {
		c.pending = make(chan lineResult, 1)
		lines, pending := c.lines, c.pending
		lines.SetPrompt(prompt)
		go func() {
			line, err := lines.Readline()
			pending <- lineResult{line: line, err: err}
		}()
	} else {
		c.lines.SetPrompt(prompt)
	}
	pending := c.pending
	c.mu.Unlock()

	select {
	case res := <-pending:
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// interrupted handles a CTRL+C typed while the console owned the keyboard.
func (c *Console) interrupted(ctx context.Context) error {
	if c.onInterrupt == nil {
		return fmt.Errorf("input interrupted: %w", context.Canceled)
	}
	c.onInterrupt()
	<-ctx.Done()
	return ctx.Err()
}

// startKeys switches the terminal to raw mode and starts reading key presses.
func (c *Console) startKeys() {
	if c.keys != nil {
		return
	}
	if f, ok := c.in.(*os.File); ok && c.tty {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			c.logger.Warn("failed to enable raw mode", "error", err)
		} else {
			c.rawState = state
		}
	}
	c.keys = make(chan capability.Key, 64)
	go func(keys chan<- capability.Key) {
		buf := make([]byte, 64)
		for {
			n, err := c.in.Read(buf)
			for _, k := range decodeKeys(buf[:n]) {
				keys <- k
			}
			if err != nil {
				c.mu.Lock()
				c.keysErr = err
				c.mu.Unlock()
				if errors.Is(err, io.EOF) {
					keys <- capability.Key{Code: capability.KeyEOF}
				}
				close(keys)
				return
			}
		}
	}(c.keys)
}

func (c *Console) keyClosedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keysErr != nil && !errors.Is(c.keysErr, io.EOF) {
		return c.keysErr
	}
	return io.EOF
}

// ReadKey implements capability.Console.
func (c *Console) ReadKey(ctx context.Context) (capability.Key, error) {
	c.mu.Lock()
	c.startKeys()
	keys := c.keys
	c.mu.Unlock()

	select {
	case k, ok := <-keys:
		if !ok {
			return capability.Key{}, c.keyClosedErr()
		}
		if k.Code == capability.KeyInterrupt && c.onInterrupt != nil {
			return capability.Key{}, c.interrupted(ctx)
		}
		return k, nil
	case <-ctx.Done():
		return capability.Key{}, ctx.Err()
	}
}

// PollKey implements capability.Console.
func (c *Console) PollKey() (capability.Key, bool, error) {
	c.mu.Lock()
	c.startKeys()
	keys := c.keys
	c.mu.Unlock()

	select {
	case k, ok := <-keys:
		if !ok {
			return capability.Key{}, false, c.keyClosedErr()
		}
		return k, true, nil
	default:
		return capability.Key{}, false, nil
	}
}

// NewLineReader returns a LineReader for non-interactive input. It echoes the prompt to
// out and strips line endings.
func NewLineReader(in io.Reader, out io.Writer) LineReader {
	return &plainLines{r: bufio.NewReader(in), out: out}
}

// plainLines reads lines from a non-interactive stream, echoing the prompt.
type plainLines struct {
	r      *bufio.Reader
	out    io.Writer
	mu     sync.Mutex
	prompt string
}

// SetPrompt sets the prompt echoed by the next Readline. A read that is already waiting
// has echoed its prompt.
func (p *plainLines) SetPrompt(prompt string) {
	p.mu.Lock()
	p.prompt = prompt
	p.mu.Unlock()
}

func (p *plainLines) Readline() (string, error) {
	p.mu.Lock()
	prompt := p.prompt
	p.mu.Unlock()
	if prompt != "" {
		if _, err := io.WriteString(p.out, prompt); err != nil {
			return "", err
		}
	}
	line, err := p.r.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
