// Package storage implements the file system capability on top of memory, a local
// directory, SQLite and PostgreSQL, and multiplexes several of them as named drives.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/leapstack-labs/leapbasic/pkg/capability"
	"github.com/leapstack-labs/leapbasic/pkg/symtab"
)

type memFile struct {
	data    []byte
	modTime time.Time
}

// Memory is a volatile drive. File names are case-insensitive and keep the spelling of
// their first save.
type Memory struct {
	mu    sync.Mutex
	files *symtab.Index[memFile]
	now   func() time.Time
}

// NewMemory returns an empty memory drive.
func NewMemory() *Memory {
	return &Memory{files: symtab.New[memFile](), now: time.Now}
}

// List implements capability.FileSystem.
func (m *Memory) List(ctx context.Context) ([]capability.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]capability.FileInfo, 0, m.files.Len())
	for name, f := range m.files.All() {
		infos = append(infos, capability.FileInfo{Name: name, Size: int64(len(f.data)), ModTime: f.modTime})
	}
	return infos, nil
}

// Get implements capability.FileSystem.
func (m *Memory) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files.Get(name)
	if !ok {
		return nil, notFound(name)
	}
	return append([]byte(nil), f.data...), nil
}

// Put implements capability.FileSystem.
func (m *Memory) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if spelled, ok := m.files.Spelling(name); ok {
		name = spelled
	}
	m.files.Replace(name, memFile{data: append([]byte(nil), data...), modTime: m.now()})
	return nil
}

// Delete implements capability.FileSystem.
func (m *Memory) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.files.Remove(name) {
		return notFound(name)
	}
	return nil
}
