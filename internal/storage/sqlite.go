package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapbasic/pkg/capability"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

//go:embed migrations
var migrations embed.FS

// goose keeps its dialect and file system in package state.
var gooseMu sync.Mutex

// SQLite is a drive that keeps every file as a row of a SQLite database.
type SQLite struct {
	db     *sql.DB
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// OpenSQLite opens (or creates) the database at path and brings its schema up to date.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a different database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := migrate(ctx, db, "sqlite"); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := NewSQLite(db, logger)
	s.path = path
	return s, nil
}

// NewSQLite wraps an already migrated database.
func NewSQLite(db *sql.DB, logger *slog.Logger) *SQLite {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLite{db: db, now: time.Now, logger: logger}
}

// migrate runs the pending schema migrations of dialect on db. Each dialect keeps its
// migrations under migrations/<dialect>.
func migrate(ctx context.Context, db *sql.DB, dialect string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations/"+dialect); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// List implements capability.FileSystem.
func (s *SQLite) List(ctx context.Context) ([]capability.FileInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, size, modified_at FROM files ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []capability.FileInfo
	for rows.Next() {
		var fi capability.FileInfo
		if err := rows.Scan(&fi.Name, &fi.Size, &fi.ModTime); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		infos = append(infos, fi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return infos, nil
}

// Get implements capability.FileSystem.
func (s *SQLite) Get(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT content FROM files WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Put implements capability.FileSystem.
func (s *SQLite) Put(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, name, content, size, created_at, modified_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET content = excluded.content, size = excluded.size, modified_at = excluded.modified_at`,
		uuid.New().String(), name, data, len(data), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	s.logger.Debug("stored file", "drive", s.path, "name", name, "bytes", len(data))
	return nil
}

// Delete implements capability.FileSystem.
func (s *SQLite) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	if n == 0 {
		return notFound(name)
	}
	return nil
}
