// Package cache stores transform results in SQLite, keyed by the content of a
// bundle and the fingerprint of the configuration that produced them.
package cache

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/zeebo/xxh3"
)

// Cache wraps a SQLite connection holding transform results.
type Cache struct {
	db     *sql.DB
	dbPath string
}

// Key derives a cache key from a configuration fingerprint and the input bytes.
func Key(fingerprint string, content []byte) string {
	h := xxh3.New()
	_, _ = h.WriteString(fingerprint)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(content)
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:])
}

// DefaultPath returns ~/.cache/lazycode/cache.db, creating the directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	dir := filepath.Join(home, ".cache", "lazycode")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir cache: %w", err)
	}
	return filepath.Join(dir, "cache.db"), nil
}

// Open opens or creates the cache at path. An empty path means DefaultPath.
func Open(path string) (*Cache, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir cache: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return initCache(db, path)
}

// OpenMemory opens an in-memory cache (for testing).
func OpenMemory() (*Cache, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	// Every pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)
	return initCache(db, ":memory:")
}

func initCache(db *sql.DB, path string) (*Cache, error) {
	c := &Cache{db: db, dbPath: path}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	slog.Debug("cache.open", "path", path)
	return c, nil
}

func (c *Cache) initSchema() error {
	_, err := c.db.Exec(`
	CREATE TABLE IF NOT EXISTS results (
		key        TEXT PRIMARY KEY,
		output     BLOB NOT NULL,
		modules    INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_created ON results(created_at);`)
	return err
}

// Path returns the database path, or ":memory:".
func (c *Cache) Path() string { return c.dbPath }

// Close closes the underlying connection.
func (c *Cache) Close() error { return c.db.Close() }

// Get returns the stored output and module count for key. ok is false on a miss.
func (c *Cache) Get(key string) (output []byte, modules int, ok bool, err error) {
	err = c.db.QueryRow("SELECT output, modules FROM results WHERE key = ?", key).Scan(&output, &modules)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("get %s: %w", key, err)
	}
	return output, modules, true, nil
}

// Put stores output under key, replacing any previous entry.
func (c *Cache) Put(key string, output []byte, modules int) error {
	_, err := c.db.Exec(`INSERT INTO results (key, output, modules, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET output=excluded.output, modules=excluded.modules, created_at=excluded.created_at`,
		key, output, modules, now())
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Prune deletes entries created more than olderThan ago and returns how many
// were removed.
func (c *Cache) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(time.RFC3339Nano)
	res, err := c.db.Exec("DELETE FROM results WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	if n > 0 {
		slog.Info("cache.prune", "removed", n, "older_than", olderThan)
	}
	return n, nil
}

// Stats returns the number of entries and the total stored output size.
func (c *Cache) Stats() (entries int, bytes int64, err error) {
	err = c.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(LENGTH(output)), 0) FROM results").Scan(&entries, &bytes)
	if err != nil {
		return 0, 0, fmt.Errorf("stats: %w", err)
	}
	return entries, bytes, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
