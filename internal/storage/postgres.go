package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/leapstack-labs/leapbasic/pkg/capability"
)

// Postgres is a drive that keeps every file as a row of a PostgreSQL table. Several hosts
// may share one database; names are unique regardless of case.
type Postgres struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// OpenPostgres connects to the database named by dsn (a URL or key=value string) and
// brings its schema up to date.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres drive needs a connection string in path")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if err := migrate(ctx, db, "postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgres(db, logger), nil
}

// NewPostgres wraps an already migrated database.
func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Postgres{db: db, now: time.Now, logger: logger}
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// List implements capability.FileSystem.
func (p *Postgres) List(ctx context.Context) ([]capability.FileInfo, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name, size, modified_at FROM files ORDER BY lower(name)`)
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
func (p *Postgres) Get(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx, `SELECT content FROM files WHERE lower(name) = lower($1)`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Put implements capability.FileSystem. Saving over an existing file keeps its original
// spelling, as the other drives do.
func (p *Postgres) Put(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	now := p.now().UTC()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO files (id, name, content, size, created_at, modified_at) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ((lower(name))) DO UPDATE SET content = EXCLUDED.content, size = EXCLUDED.size, modified_at = EXCLUDED.modified_at`,
		uuid.New(), name, data, len(data), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	p.logger.Debug("stored file", "drive", "postgres", "name", name, "bytes", len(data))
	return nil
}

// Delete implements capability.FileSystem.
func (p *Postgres) Delete(ctx context.Context, name string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM files WHERE lower(name) = lower($1)`, name)
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
