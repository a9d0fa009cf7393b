package night

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists nights. Latest and Get return ErrNoNight when nothing matches.
type Store interface {
	Insert(ctx context.Context, n Night) error
	Update(ctx context.Context, n Night) error
	Clear(ctx context.Context) error
	Latest(ctx context.Context) (Night, error)
	All(ctx context.Context) ([]Night, error) // newest first
	Get(ctx context.Context, id string) (Night, error)
	Close() error
}

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// sqliteStore keeps nights in a single table; seq records creation order.
type sqliteStore struct {
	db *sql.DB
}

// DefaultPath returns the database location in the XDG data directory.
// Path: $XDG_DATA_HOME/sleeptrack/sleeptrack.db or ~/.local/share/sleeptrack/sleeptrack.db
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "sleeptrack", "sleeptrack.db"), nil
}

// NewStore opens (creating if needed) the SQLite database at path.
func NewStore(path string) (Store, error) {
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)

	s := &sqliteStore{db: db}
	if err := s.initialize(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *sqliteStore) initialize(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS sleep_nights (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  start_ms INTEGER NOT NULL,
  end_ms INTEGER NOT NULL,
  quality INTEGER NOT NULL DEFAULT -1
);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *sqliteStore) Insert(ctx context.Context, n Night) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sleep_nights (id, start_ms, end_ms, quality) VALUES (?, ?, ?, ?)",
		n.ID, n.StartTime.UnixMilli(), n.EndTime.UnixMilli(), int(n.Quality),
	)
	if err != nil {
		return fmt.Errorf("insert night: %w", err)
	}
	return nil
}

func (s *sqliteStore) Update(ctx context.Context, n Night) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sleep_nights SET start_ms = ?, end_ms = ?, quality = ? WHERE id = ?",
		n.StartTime.UnixMilli(), n.EndTime.UnixMilli(), int(n.Quality), n.ID,
	)
	if err != nil {
		return fmt.Errorf("update night: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update night: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update night %s: %w", n.ID, ErrNoNight)
	}
	return nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sleep_nights"); err != nil {
		return fmt.Errorf("clear nights: %w", err)
	}
	return nil
}

func (s *sqliteStore) Latest(ctx context.Context) (Night, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, start_ms, end_ms, quality FROM sleep_nights ORDER BY seq DESC LIMIT 1")
	n, err := scanNight(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Night{}, ErrNoNight
		}
		return Night{}, fmt.Errorf("query latest night: %w", err)
	}
	return n, nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (Night, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, start_ms, end_ms, quality FROM sleep_nights WHERE id = ?", id)
	n, err := scanNight(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Night{}, fmt.Errorf("%w: %s", ErrNoNight, id)
		}
		return Night{}, fmt.Errorf("query night: %w", err)
	}
	return n, nil
}

func (s *sqliteStore) All(ctx context.Context) ([]Night, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, start_ms, end_ms, quality FROM sleep_nights ORDER BY seq DESC")
	if err != nil {
		return nil, fmt.Errorf("query nights: %w", err)
	}
	defer rows.Close()

	nights := []Night{}
	for rows.Next() {
		n, err := scanNight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan night: %w", err)
		}
		nights = append(nights, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return nights, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNight(row scanner) (Night, error) {
	var (
		n              Night
		startMs, endMs int64
		quality        int
	)
	if err := row.Scan(&n.ID, &startMs, &endMs, &quality); err != nil {
		return Night{}, err
	}
	n.StartTime = time.UnixMilli(startMs)
	n.EndTime = time.UnixMilli(endMs)
	n.Quality = Rating(quality)
	return n, nil
}
