package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/custodia-labs/connect-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
	"github.com/custodia-labs/connect-cli/internal/logger"
)

var _ driven.DriveStateStore = (*Store)(nil)

// DatabaseFileName is the state database file inside the data directory.
const DatabaseFileName = "state.db"

// Store is the SQLite-backed drive state store.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultDataDir returns ~/.connect/googledrive.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".connect", "googledrive"), nil
}

// databasePath turns the state_db setting into a file path. Empty means the
// default directory; a value ending in .db names the file itself.
func databasePath(location string) (string, error) {
	switch {
	case location == "":
		dir, err := DefaultDataDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, DatabaseFileName), nil
	case strings.HasSuffix(location, ".db"):
		return location, nil
	}
	return filepath.Join(location, DatabaseFileName), nil
}

// NewStore opens the state database at location, creating and migrating it
// as needed.
func NewStore(location string) (*Store, error) {
	path, err := databasePath(location)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	// WAL lets a download audit be read while a sync writes.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate brings the schema up to the newest embedded migration.
func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("run goose migrations: %w", err)
	}
	return nil
}

// gooseLogger sends goose progress to the debug log.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	logger.Debug("sqlite: "+strings.TrimSuffix(format, "\n"), v...)
}

func (gooseLogger) Fatalf(format string, v ...any) {
	logger.Warn("sqlite: "+strings.TrimSuffix(format, "\n"), v...)
}

// Times are stored as Unix milliseconds.

// toMillis maps the zero time to NULL.
func toMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}

// stamp returns t, or now when t is zero, for NOT NULL time columns.
func stamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UnixMilli()
}
