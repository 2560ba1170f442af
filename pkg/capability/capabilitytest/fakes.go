// Package capabilitytest provides in-memory fakes of the capability interfaces for tests.
// Every fake counts its calls so tests can assert that a rejected invocation never
// touched the outside world.
package capabilitytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/leapbasic/pkg/capability"
)

// Console records output and serves scripted input. When no scripted line or key is
// left, ReadLine and ReadKey block until their context is cancelled.
type Console struct {
	mu      sync.Mutex
	calls   int
	prints  []string
	writes  []string
	lines   []string
	keys    []capability.Key
	fg, bg  capability.Color
	pos     capability.XY
	size    capability.XY
	cleared []capability.ClearType
	prompts []string
}

// NewConsole returns an 80x24 console with the given scripted input lines.
func NewConsole(lines ...string) *Console {
	return &Console{
		lines: lines,
		fg:    capability.NoColor,
		bg:    capability.NoColor,
		size:  capability.XY{X: 80, Y: 24},
	}
}

func (c *Console) touch() {
	c.calls++
}

// Calls returns how many console methods were invoked.
func (c *Console) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Prints returns every line passed to Print.
func (c *Console) Prints() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prints...)
}

// Writes returns every chunk passed to Write.
func (c *Console) Writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

// Prompts returns the prompts passed to ReadLine.
func (c *Console) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// Cleared returns the Clear calls in order.
func (c *Console) Cleared() []capability.ClearType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capability.ClearType(nil), c.cleared...)
}

// Position returns the last location set with Locate.
func (c *Console) Position() capability.XY {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// SetSize changes what Size reports.
func (c *Console) SetSize(size capability.XY) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = size
}

// PushKeys queues key presses for ReadKey and PollKey.
func (c *Console) PushKeys(keys ...capability.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, keys...)
}

// Print implements capability.Console.
func (c *Console) Print(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.prints = append(c.prints, text)
	return nil
}

// Write implements capability.Console.
func (c *Console) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.writes = append(c.writes, text)
	return nil
}

// Clear implements capability.Console.
func (c *Console) Clear(how capability.ClearType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.cleared = append(c.cleared, how)
	return nil
}

// Color implements capability.Console.
func (c *Console) Color() (capability.Color, capability.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	return c.fg, c.bg
}

// SetColor implements capability.Console.
func (c *Console) SetColor(fg, bg capability.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.fg, c.bg = fg, bg
	return nil
}

// Locate implements capability.Console.
func (c *Console) Locate(pos capability.XY) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.pos = pos
	return nil
}

// Size implements capability.Console.
func (c *Console) Size() (capability.XY, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	return c.size, nil
}

// ReadLine implements capability.Console.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.touch()
	c.prompts = append(c.prompts, prompt)
	if len(c.lines) > 0 {
		line := c.lines[0]
		c.lines = c.lines[1:]
		c.mu.Unlock()
		return line, nil
	}
	c.mu.Unlock()
	<-ctx.Done()
	return "", ctx.Err()
}

// ReadKey implements capability.Console.
func (c *Console) ReadKey(ctx context.Context) (capability.Key, error) {
	c.mu.Lock()
	c.touch()
	if len(c.keys) > 0 {
		k := c.keys[0]
		c.keys = c.keys[1:]
		c.mu.Unlock()
		return k, nil
	}
	c.mu.Unlock()
	<-ctx.Done()
	return capability.Key{}, ctx.Err()
}

// PollKey implements capability.Console.
func (c *Console) PollKey() (capability.Key, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	if len(c.keys) == 0 {
		return capability.Key{}, false, nil
	}
	k := c.keys[0]
	c.keys = c.keys[1:]
	return k, true, nil
}

// IsInteractive implements capability.Console.
func (c *Console) IsInteractive() bool {
	return false
}

// FileSystem is a map-backed file system that can be told to fail.
type FileSystem struct {
	mu    sync.Mutex
	calls int
	files map[string][]byte
	mod   map[string]time.Time
	// Err, when set, is returned by every operation.
	Err error
}

// NewFileSystem returns a file system preloaded with files.
func NewFileSystem(files map[string]string) *FileSystem {
	fs := &FileSystem{files: make(map[string][]byte), mod: make(map[string]time.Time)}
	for name, content := range files {
		fs.files[strings.ToUpper(name)] = []byte(content)
		fs.mod[strings.ToUpper(name)] = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	return fs
}

// Calls returns how many operations were attempted.
func (fs *FileSystem) Calls() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.calls
}

// Contents returns the bytes stored under name and whether it exists.
func (fs *FileSystem) Contents(name string) ([]byte, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, ok := fs.files[strings.ToUpper(name)]
	return append([]byte(nil), data...), ok
}

// List implements capability.FileSystem.
func (fs *FileSystem) List(_ context.Context) ([]capability.FileInfo, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls++
	if fs.Err != nil {
		return nil, fs.Err
	}
	infos := make([]capability.FileInfo, 0, len(fs.files))
	for name, data := range fs.files {
		infos = append(infos, capability.FileInfo{Name: name, Size: int64(len(data)), ModTime: fs.mod[name]})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Get implements capability.FileSystem.
func (fs *FileSystem) Get(_ context.Context, name string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls++
	if fs.Err != nil {
		return nil, fs.Err
	}
	data, ok := fs.files[strings.ToUpper(name)]
	if !ok {
		return nil, capability.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Put implements capability.FileSystem.
func (fs *FileSystem) Put(_ context.Context, name string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls++
	if fs.Err != nil {
		return fs.Err
	}
	fs.files[strings.ToUpper(name)] = append([]byte(nil), data...)
	fs.mod[strings.ToUpper(name)] = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return nil
}

// Delete implements capability.FileSystem.
func (fs *FileSystem) Delete(_ context.Context, name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls++
	if fs.Err != nil {
		return fs.Err
	}
	if _, ok := fs.files[strings.ToUpper(name)]; !ok {
		return capability.ErrNotFound
	}
	delete(fs.files, strings.ToUpper(name))
	delete(fs.mod, strings.ToUpper(name))
	return nil
}

// Clock is a fixed clock. Sleep records the requested durations and returns at once
// unless Block is set, in which case it waits for cancellation.
type Clock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
	Block bool
	calls int
}

// NewClock returns a clock frozen at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Calls returns how many clock methods were invoked.
func (c *Clock) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Slept returns the durations passed to Sleep.
func (c *Clock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

// Now implements capability.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.now
}

// Sleep implements capability.Clock.
func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.calls++
	c.slept = append(c.slept, d)
	block := c.Block
	c.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return ctx.Err()
}

// Capabilities bundles a fresh set of fakes with a seeded generator.
type Capabilities struct {
	*capability.Capabilities
	FakeConsole *Console
	FakeFiles   *FileSystem
	FakeClock   *Clock
}

// New returns fakes for every capability; the generator is seeded with seed.
func New(seed int64) *Capabilities {
	con := NewConsole()
	fs := NewFileSystem(nil)
	clock := NewClock(time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("CEST", 2*60*60)))
	return &Capabilities{
		Capabilities: &capability.Capabilities{
			Console: con,
			Files:   fs,
			Clock:   clock,
			Rand:    capability.NewRand(seed),
			Program: capability.NewProgram(),
		},
		FakeConsole: con,
		FakeFiles:   fs,
		FakeClock:   clock,
	}
}
