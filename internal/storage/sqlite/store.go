package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
)

// Store implements storage.Store on a single SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

var _ storage.Store = (*Store)(nil)

// connPragmas run on the single pooled connection before the schema.
var connPragmas = []struct{ stmt, what string }{
	{"PRAGMA journal_mode=WAL", "enable WAL mode"},
	{"PRAGMA busy_timeout = 5000", "set busy timeout"},
	{"PRAGMA foreign_keys = ON", "enable foreign keys"},
}

// NewStore opens dsn (a path, a file: URI or ":memory:") and applies the
// schema. A crash can leave -wal/-shm files that make the first open fail;
// when no process holds them they are removed and the open is retried once.
func NewStore(dsn string) (*Store, error) {
	s, err := open(dsn)
	if err == nil {
		return s, nil
	}

	path := dbPathFromDSN(dsn)
	if path == "" || !walLooksStale(err, path) {
		return nil, err
	}
	for _, sidecar := range []string{path + "-shm", path + "-wal"} {
		if rmErr := os.Remove(sidecar); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("sqlite: could not remove %s: %v", sidecar, rmErr)
		}
	}

	s, retryErr := open(dsn)
	if retryErr != nil {
		return nil, fmt.Errorf("open %s after clearing WAL: %w (first attempt: %v)", path, retryErr, err)
	}
	log.Printf("sqlite: cleared stale WAL sidecars for %s", path)
	return s, nil
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serialises writers; the dedup claim relies on it. It
	// also keeps ":memory:" databases alive for the life of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range connPragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to %s: %w", p.what, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, path: dbPathFromDSN(dsn)}, nil
}

// DB exposes the connection for VACUUM INTO snapshots.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path is the database file, "" for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL into the main file, then closes the connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Printf("sqlite: checkpoint on close: %v", err)
	}
	return s.db.Close()
}

// utc is applied to every stored timestamp so text comparisons in SQL sort
// chronologically.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullableBytes(b []byte) sql.NullString {
	return nullableString(string(b))
}

// nullableString stores "" as NULL.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// dbPathFromDSN returns the file behind dsn, or "" for in-memory databases
// and DSNs that do not parse.
func dbPathFromDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		if dsn == ":memory:" {
			return ""
		}
		return dsn
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return ""
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	if p == ":memory:" {
		return ""
	}
	return p
}

// walLooksStale reports whether openErr is the kind of failure stale
// sidecars cause, the sidecars exist, and lsof finds no process holding
// them. Without lsof the answer is always false.
func walLooksStale(openErr error, path string) bool {
	msg := openErr.Error()
	if !strings.Contains(msg, "disk I/O error") && !strings.Contains(msg, "database is locked") {
		return false
	}

	var present []string
	for _, sidecar := range []string{path + "-shm", path + "-wal"} {
		if _, err := os.Stat(sidecar); err == nil {
			present = append(present, sidecar)
		}
	}
	if len(present) == 0 {
		return false
	}

	lsof, err := exec.LookPath("lsof")
	if err != nil {
		return false
	}
	out, err := exec.Command(lsof, append([]string{"-t", path}, present...)...).Output()
	if err != nil {
		// lsof exits non-zero when no process has the files open.
		return true
	}
	return strings.TrimSpace(string(out)) == ""
}
