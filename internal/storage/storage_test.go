package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leapbasic/internal/testutil"
	"github.com/leapstack-labs/leapbasic/pkg/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseDrive runs the behaviour every drive must share.
func exerciseDrive(t *testing.T, fs capability.FileSystem) {
	t.Helper()
	ctx := context.Background()

	infos, err := fs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)

	_, err = fs.Get(ctx, "missing.bas")
	assert.ErrorIs(t, err, capability.ErrNotFound)
	assert.ErrorIs(t, fs.Delete(ctx, "missing.bas"), capability.ErrNotFound)

	payload := []byte{0x1f, 0x8b, 0x00, 'x', 0xff}
	require.NoError(t, fs.Put(ctx, "Demo.bas", payload))
	require.NoError(t, fs.Put(ctx, "another.bas", []byte("10 END")))

	got, err := fs.Get(ctx, "DEMO.BAS")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, fs.Put(ctx, "demo.BAS", []byte("v2")))
	got, err = fs.Get(ctx, "Demo.bas")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	infos, err = fs.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "another.bas", infos[0].Name)
	assert.Equal(t, int64(6), infos[0].Size)
	assert.Equal(t, "Demo.bas", infos[1].Name)
	assert.Equal(t, int64(2), infos[1].Size)
	assert.False(t, infos[1].ModTime.IsZero())

	require.NoError(t, fs.Delete(ctx, "DEMO.bas"))
	_, err = fs.Get(ctx, "Demo.bas")
	assert.ErrorIs(t, err, capability.ErrNotFound)

	assert.Error(t, fs.Put(ctx, "../escape.bas", []byte("x")))
	assert.Error(t, fs.Put(ctx, "", []byte("x")))
}

func TestMemory(t *testing.T) {
	exerciseDrive(t, NewMemory())
}

func TestMemory_CopiesData(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	data := []byte("abc")
	require.NoError(t, m.Put(ctx, "a", data))
	data[0] = 'X'
	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	got[1] = 'Y'
	again, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemory_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory().List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "drive")
	l, err := NewLocal(dir)
	require.NoError(t, err)
	exerciseDrive(t, l)
}

func TestLocal_IgnoresOtherEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prog.bas"), []byte("x"), 0o644))

	l, err := NewLocal(dir)
	require.NoError(t, err)
	infos, err := l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "prog.bas", infos[0].Name)

	_, err = NewLocal("")
	assert.Error(t, err)
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	exerciseDrive(t, db)
}

func TestSQLite_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "drive.db")

	db, err := OpenSQLite(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, db.Put(ctx, "keep.bas", []byte("PRINT 1")))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	got, err := db.Get(ctx, "KEEP.BAS")
	require.NoError(t, err)
	assert.Equal(t, []byte("PRINT 1"), got)
}

func TestSQLite_Failures(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		run       func(s *SQLite) error
		errMsg    string
	}{
		{
			name: "list query fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT name, size, modified_at FROM files").WillReturnError(assert.AnError)
			},
			run: func(s *SQLite) error {
				_, err := s.List(context.Background())
				return err
			},
			errMsg: "failed to list files",
		},
		{
			name: "get query fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT content FROM files WHERE name = ?")).
					WithArgs("a.bas").
					WillReturnError(assert.AnError)
			},
			run: func(s *SQLite) error {
				_, err := s.Get(context.Background(), "a.bas")
				return err
			},
			errMsg: "failed to read a.bas",
		},
		{
			name: "get finds nothing",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT content FROM files WHERE name = ?")).
					WithArgs("a.bas").
					WillReturnRows(sqlmock.NewRows([]string{"content"}))
			},
			run: func(s *SQLite) error {
				_, err := s.Get(context.Background(), "a.bas")
				return err
			},
			errMsg: "file not found",
		},
		{
			name: "put fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO files").WillReturnError(assert.AnError)
			},
			run: func(s *SQLite) error {
				return s.Put(context.Background(), "a.bas", []byte("x"))
			},
			errMsg: "failed to save a.bas",
		},
		{
			name: "delete affects nothing",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DELETE FROM files").WithArgs("a.bas").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			run: func(s *SQLite) error {
				return s.Delete(context.Background(), "a.bas")
			},
			errMsg: "file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			err = tt.run(NewSQLite(db, testutil.NewTestLogger(t)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgres(t *testing.T) {
	modified := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		run       func(t *testing.T, p *Postgres) error
		errMsg    string
	}{
		{
			name: "list",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT name, size, modified_at FROM files ORDER BY lower(name)")).
					WillReturnRows(sqlmock.NewRows([]string{"name", "size", "modified_at"}).
						AddRow("a.bas", 3, modified).
						AddRow("B.BAS", 5, modified))
			},
			run: func(t *testing.T, p *Postgres) error {
				infos, err := p.List(context.Background())
				require.NoError(t, err)
				require.Len(t, infos, 2)
				assert.Equal(t, "B.BAS", infos[1].Name)
				assert.Equal(t, int64(5), infos[1].Size)
				return err
			},
		},
		{
			name: "get ignores case",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT content FROM files WHERE lower(name) = lower($1)")).
					WithArgs("A.BAS").
					WillReturnRows(sqlmock.NewRows([]string{"content"}).AddRow([]byte("10 END")))
			},
			run: func(t *testing.T, p *Postgres) error {
				got, err := p.Get(context.Background(), "A.BAS")
				assert.Equal(t, []byte("10 END"), got)
				return err
			},
		},
		{
			name: "get finds nothing",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT content FROM files").
					WithArgs("a.bas").
					WillReturnRows(sqlmock.NewRows([]string{"content"}))
			},
			run: func(_ *testing.T, p *Postgres) error {
				_, err := p.Get(context.Background(), "a.bas")
				return err
			},
			errMsg: "file not found",
		},
		{
			name: "put upserts",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT ((lower(name))) DO UPDATE")).
					WithArgs(sqlmock.AnyArg(), "a.bas", []byte("x"), 1, modified, modified).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			run: func(_ *testing.T, p *Postgres) error {
				p.now = func() time.Time { return modified }
				return p.Put(context.Background(), "a.bas", []byte("x"))
			},
		},
		{
			name:      "put rejects bad names",
			setupMock: func(sqlmock.Sqlmock) {},
			run: func(_ *testing.T, p *Postgres) error {
				return p.Put(context.Background(), "../a.bas", nil)
			},
			errMsg: "invalid file name",
		},
		{
			name: "put fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO files").WillReturnError(assert.AnError)
			},
			run: func(_ *testing.T, p *Postgres) error {
				return p.Put(context.Background(), "a.bas", []byte("x"))
			},
			errMsg: "failed to save a.bas",
		},
		{
			name: "delete affects nothing",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM files WHERE lower(name) = lower($1)")).
					WithArgs("a.bas").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			run: func(_ *testing.T, p *Postgres) error {
				return p.Delete(context.Background(), "a.bas")
			},
			errMsg: "file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			err = tt.run(t, NewPostgres(db, testutil.NewTestLogger(t)))
			if tt.errMsg == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOpenPostgres_NeedsDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "", nil)
	assert.ErrorContains(t, err, "connection string")
}

func TestDrives(t *testing.T) {
	ctx := context.Background()
	d := NewDrives()

	_, err := d.List(ctx)
	assert.ErrorContains(t, err, "no drive mounted")

	mem, other := NewMemory(), NewMemory()
	require.NoError(t, d.Mount("MEMORY", mem))
	require.NoError(t, d.Mount("Other", other))
	assert.Error(t, d.Mount("memory", NewMemory()))
	assert.Error(t, d.Mount("bad:name", NewMemory()))
	assert.Equal(t, "MEMORY", d.Current())
	assert.Equal(t, []string{"MEMORY", "Other"}, d.Names())

	require.NoError(t, d.Put(ctx, "a.bas", []byte("1")))
	require.NoError(t, d.Put(ctx, "other:b.bas", []byte("2")))

	_, err = mem.Get(ctx, "a.bas")
	assert.NoError(t, err)
	_, err = other.Get(ctx, "b.bas")
	assert.NoError(t, err)

	got, err := d.Get(ctx, "OTHER:B.BAS")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)

	require.NoError(t, d.SetCurrent("other"))
	assert.Equal(t, "Other", d.Current())
	infos, err := d.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "b.bas", infos[0].Name)

	require.NoError(t, d.Delete(ctx, "memory:a.bas"))
	_, err = d.Get(ctx, "nowhere:a.bas")
	assert.ErrorContains(t, err, "not mounted")

	assert.Error(t, d.Unmount("other"))
	require.NoError(t, d.Unmount("memory"))
	assert.Equal(t, []string{"Other"}, d.Names())
	assert.Error(t, d.SetCurrent("memory"))
	assert.NoError(t, d.Close())
}

func TestOpenDrives(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	drives, err := OpenDrives(ctx, map[string]DriveConfig{
		"MEMORY": {Type: TypeMemory},
		"LOCAL":  {Type: TypeLocal, Path: dir},
		"DB":     {Type: TypeSQLite, Path: filepath.Join(dir, "files.db"), Retries: 2},
	}, "local", nil)
	require.NoError(t, err)
	defer func() { _ = drives.Close() }()

	assert.Equal(t, []string{"DB", "LOCAL", "MEMORY"}, drives.Names())
	assert.Equal(t, "LOCAL", drives.Current())

	require.NoError(t, drives.Put(ctx, "x.bas", []byte("local")))
	_, err = os.Stat(filepath.Join(dir, "x.bas"))
	assert.NoError(t, err)

	require.NoError(t, drives.Put(ctx, "db:x.bas", []byte("db")))
	got, err := drives.Get(ctx, "DB:X.BAS")
	require.NoError(t, err)
	assert.Equal(t, []byte("db"), got)

	_, err = OpenDrives(ctx, map[string]DriveConfig{"X": {Type: "ftp"}}, "", nil)
	assert.ErrorContains(t, err, "unknown drive type")

	_, err = OpenDrives(ctx, map[string]DriveConfig{"X": {Type: TypeMemory}}, "Y", nil)
	assert.ErrorContains(t, err, "not mounted")
}

// flaky fails its first failures operations.
type flaky struct {
	capability.FileSystem
	failures int
	calls    int
	err      error
}

func (f *flaky) Get(ctx context.Context, name string) ([]byte, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.FileSystem.Get(ctx, name)
}

func TestRetrying(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Put(ctx, "a.bas", []byte("ok")))

	t.Run("recovers from transient failures", func(t *testing.T) {
		f := &flaky{FileSystem: mem, failures: 2, err: errors.New("database is locked")}
		r := NewRetrying(f, 3, time.Millisecond, testutil.NewTestLogger(t))
		got, err := r.Get(ctx, "a.bas")
		require.NoError(t, err)
		assert.Equal(t, []byte("ok"), got)
		assert.Equal(t, 3, f.calls)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		f := &flaky{FileSystem: mem, failures: 5, err: errors.New("database is locked")}
		r := NewRetrying(f, 2, time.Millisecond, nil)
		_, err := r.Get(ctx, "a.bas")
		assert.ErrorContains(t, err, "database is locked")
		assert.Equal(t, 2, f.calls)
	})

	t.Run("does not retry missing files", func(t *testing.T) {
		f := &flaky{FileSystem: mem}
		r := NewRetrying(f, 5, time.Millisecond, nil)
		_, err := r.Get(ctx, "missing.bas")
		assert.ErrorIs(t, err, capability.ErrNotFound)
		assert.Equal(t, 1, f.calls)
	})

	t.Run("passes other operations through", func(t *testing.T) {
		r := NewRetrying(NewMemory(), 2, time.Millisecond, nil)
		exerciseDrive(t, r)
		assert.NoError(t, r.Close())
	})
}
