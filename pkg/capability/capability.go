// Package capability declares the external resources that built-ins may touch.
//
// Built-ins never reach for global state. Everything they need from the outside world is
// handed to them as one of the handles below, bundled in Capabilities and carried by the
// invocation. Hosts provide real implementations; tests provide fakes.
package capability

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by FileSystem implementations when a named file does not exist.
var ErrNotFound = errors.New("file not found")

// Capabilities bundles the handles available to a built-in. Any field may be nil when the
// host does not provide that capability; built-ins that need a missing handle fail.
type Capabilities struct {
	Console Console
	Files   FileSystem
	Clock   Clock
	Rand    RandSource
	Program Program
}

// XY is a position or size in character cells.
type XY struct {
	X int
	Y int
}

// ClearType selects what Console.Clear erases.
type ClearType int

// Clear modes.
const (
	ClearAll ClearType = iota
	ClearCurrentLine
	ClearPreviousChar
	ClearUntilNewLine
)

// Color is an ANSI color number in [0, 255], or NoColor for the terminal default.
type Color int

// NoColor resets a color to the terminal default.
const NoColor Color = -1

// KeyCode identifies special keys. Ordinary characters use KeyChar.
type KeyCode int

// Key codes.
const (
	KeyUnknown KeyCode = iota
	KeyChar
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyBackspace
	KeyEnd
	KeyEOF
	KeyEscape
	KeyHome
	KeyInterrupt
	KeyNewLine
	KeyPageDown
	KeyPageUp
	KeyTab
)

// Key is a single key press.
type Key struct {
	Code KeyCode
	Char rune // Only meaningful when Code is KeyChar
}

// CharKey returns the key for an ordinary character.
func CharKey(r rune) Key { return Key{Code: KeyChar, Char: r} }

// Name returns the textual representation INKEY reports for the key.
func (k Key) Name() string {
	switch k.Code {
	case KeyChar:
		return string(k.Char)
	case KeyArrowUp:
		return "UP"
	case KeyArrowDown:
		return "DOWN"
	case KeyArrowLeft:
		return "LEFT"
	case KeyArrowRight:
		return "RIGHT"
	case KeyBackspace:
		return "BS"
	case KeyEnd:
		return "END"
	case KeyEOF, KeyInterrupt:
		return ""
	case KeyEscape:
		return "ESC"
	case KeyHome:
		return "HOME"
	case KeyNewLine:
		return "ENTER"
	case KeyPageDown:
		return "PGDOWN"
	case KeyPageUp:
		return "PGUP"
	case KeyTab:
		return "TAB"
	default:
		return "?"
	}
}

// Console is a character terminal.
//
// Output operations are synchronous. ReadLine and ReadKey block until input is available
// and must return promptly with ctx.Err() once ctx is cancelled.
type Console interface {
	// Print writes text followed by a newline.
	Print(text string) error
	// Write writes text without a trailing newline.
	Write(text string) error
	Clear(how ClearType) error
	Color() (fg, bg Color)
	SetColor(fg, bg Color) error
	Locate(pos XY) error
	Size() (XY, error)
	ReadLine(ctx context.Context, prompt string) (string, error)
	ReadKey(ctx context.Context) (Key, error)
	// PollKey returns the next pending key without blocking; ok is false if none.
	PollKey() (key Key, ok bool, err error)
	IsInteractive() bool
}

// FileInfo describes an entry of a FileSystem listing.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// FileSystem stores opaque byte blobs under flat names. Implementations may be backed by
// memory, a local directory, a database or a remote service; retries, if any, are theirs.
type FileSystem interface {
	List(ctx context.Context) ([]FileInfo, error)
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
}

// Clock tells local time and waits.
type Clock interface {
	// Now returns the current local time, including its zone offset.
	Now() time.Time
	// Sleep waits for d or until ctx is done, whichever happens first.
	Sleep(ctx context.Context, d time.Duration) error
}

// RandSource is a seedable pseudo-random number generator.
type RandSource interface {
	// Next returns a new number in [0, 1) and remembers it.
	Next() float64
	// Last returns the most recent number returned by Next.
	Last() float64
	Seed(seed int64)
}

// Program holds the text of the program being edited or run.
type Program interface {
	Name() string
	SetName(name string)
	Text() []byte
	SetText(text []byte)
}
