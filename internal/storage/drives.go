package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapbasic/pkg/capability"
	"github.com/leapstack-labs/leapbasic/pkg/symtab"
)

// Drives multiplexes named file systems. A file name may select a drive with a prefix,
// as in "CLOUD:demo.bas"; names without a prefix go to the current drive.
type Drives struct {
	mu      sync.RWMutex
	drives  *symtab.Index[capability.FileSystem]
	current string
}

// NewDrives returns an empty set of drives.
func NewDrives() *Drives {
	return &Drives{drives: symtab.New[capability.FileSystem]()}
}

// Mount adds fs under name. The first mounted drive becomes the current one.
func (d *Drives) Mount(name string, fs capability.FileSystem) error {
	if name == "" || strings.ContainsAny(name, `:/\`) {
		return fmt.Errorf("invalid drive name %q", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.drives.Insert(name, fs); err != nil {
		return fmt.Errorf("cannot mount drive: %w", err)
	}
	if d.current == "" {
		d.current = name
	}
	return nil
}

// Unmount removes a drive and closes it if it can be closed. The current drive cannot be
// unmounted.
func (d *Drives) Unmount(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	fs, ok := d.drives.Get(name)
	if !ok {
		return fmt.Errorf("drive %s is not mounted", name)
	}
	if symtab.Fold(name) == symtab.Fold(d.current) {
		return fmt.Errorf("cannot unmount the current drive %s", name)
	}
	d.drives.Remove(name)
	if c, ok := fs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SetCurrent selects the drive used by names without a prefix.
func (d *Drives) SetCurrent(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	spelled, ok := d.drives.Spelling(name)
	if !ok {
		return fmt.Errorf("drive %s is not mounted", name)
	}
	d.current = spelled
	return nil
}

// Current returns the name of the current drive.
func (d *Drives) Current() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Names returns the mounted drive names in order.
func (d *Drives) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.drives.Names()
}

// route splits an optional drive prefix off name and returns the drive that serves it.
func (d *Drives) route(name string) (capability.FileSystem, string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	drive := d.current
	if prefix, rest, ok := strings.Cut(name, ":"); ok {
		drive, name = prefix, rest
	}
	if drive == "" {
		return nil, "", fmt.Errorf("no drive mounted")
	}
	fs, ok := d.drives.Get(drive)
	if !ok {
		return nil, "", fmt.Errorf("drive %s is not mounted", drive)
	}
	return fs, name, nil
}

// List implements capability.FileSystem for the current drive.
func (d *Drives) List(ctx context.Context) ([]capability.FileInfo, error) {
	fs, _, err := d.route("")
	if err != nil {
		return nil, err
	}
	return fs.List(ctx)
}

// Get implements capability.FileSystem.
func (d *Drives) Get(ctx context.Context, name string) ([]byte, error) {
	fs, name, err := d.route(name)
	if err != nil {
		return nil, err
	}
	return fs.Get(ctx, name)
}

// Put implements capability.FileSystem.
func (d *Drives) Put(ctx context.Context, name string, data []byte) error {
	fs, name, err := d.route(name)
	if err != nil {
		return err
	}
	return fs.Put(ctx, name, data)
}

// Delete implements capability.FileSystem.
func (d *Drives) Delete(ctx context.Context, name string) error {
	fs, name, err := d.route(name)
	if err != nil {
		return err
	}
	return fs.Delete(ctx, name)
}

// Close closes every drive that can be closed.
func (d *Drives) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for _, fs := range d.drives.All() {
		if c, ok := fs.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
