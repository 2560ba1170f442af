package storage

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/leapstack-labs/leapbasic/pkg/capability"
)

// Drive types accepted by Open.
const (
	TypeMemory   = "memory"
	TypeLocal    = "local"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// DriveConfig describes one drive to mount.
type DriveConfig struct {
	Type string `koanf:"type" json:"type" yaml:"type"`
	// Path is a directory for local, a database file for sqlite and a connection string
	// for postgres.
	Path string `koanf:"path" json:"path" yaml:"path"`
	// Retries is how many extra attempts a failed operation gets. Only used by the
	// database drives.
	Retries int `koanf:"retries" json:"retries" yaml:"retries"`
}

// Open creates the drive described by cfg.
func Open(ctx context.Context, cfg DriveConfig, logger *slog.Logger) (capability.FileSystem, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return NewMemory(), nil
	case TypeLocal:
		return NewLocal(cfg.Path)
	case TypeSQLite:
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		db, err := OpenSQLite(ctx, path, logger)
		if err != nil {
			return nil, err
		}
		return withRetries(db, cfg, logger), nil
	case TypePostgres:
		db, err := OpenPostgres(ctx, cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return withRetries(db, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown drive type %q", cfg.Type)
	}
}

func withRetries(fs capability.FileSystem, cfg DriveConfig, logger *slog.Logger) capability.FileSystem {
	if cfg.Retries > 0 {
		return NewRetrying(fs, cfg.Retries+1, 50*time.Millisecond, logger)
	}
	return fs
}

// OpenDrives mounts every configured drive and makes current the current one. Drives are
// mounted in name order so that the outcome does not depend on map iteration.
func OpenDrives(ctx context.Context, cfgs map[string]DriveConfig, current string, logger *slog.Logger) (*Drives, error) {
	drives := NewDrives()
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fs, err := Open(ctx, cfgs[name], logger)
		if err != nil {
			_ = drives.Close()
			return nil, fmt.Errorf("drive %s: %w", name, err)
		}
		if err := drives.Mount(name, fs); err != nil {
			_ = drives.Close()
			return nil, err
		}
		if logger != nil {
			logger.Debug("mounted drive", "name", name, "type", cfgs[name].Type, "path", cfgs[name].Path)
		}
	}
	if current != "" {
		if err := drives.SetCurrent(current); err != nil {
			_ = drives.Close()
			return nil, err
		}
	}
	return drives, nil
}
