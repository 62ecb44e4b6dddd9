// Package cache stores block outputs between builds. A block opts in with
// cache=true; its key is a hash chain over the block and everything before
// it, so edits invalidate all downstream entries automatically.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/inkpot/weave/internal/document"
)

// Cache is a SQLite-backed block output store. Figures are stored as
// blobs and restored to the figure directory on a hit.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// WAL plus a busy timeout lets parallel chapter builds share the cache
	// without SQLITE_BUSY errors.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure cache: %w", err)
	}
	c := &Cache{db: db}
	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) ensureSchema() error {
	_, err := c.db.Exec(`
CREATE TABLE IF NOT EXISTS blocks (
    key        TEXT PRIMARY KEY,
    output     TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS figures (
    key  TEXT NOT NULL,
    ord  INTEGER NOT NULL,
    name TEXT NOT NULL,
    data BLOB NOT NULL,
    PRIMARY KEY (key, ord)
);
`)
	if err != nil {
		return fmt.Errorf("ensure cache schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get looks up a block result and, on a hit, restores its figures into
// figDir. Errored blocks are never stored, so a hit is always a success.
func (c *Cache) Get(key, figDir string) (*document.Result, bool) {
	var output string
	err := c.db.QueryRow(`SELECT output FROM blocks WHERE key = ?`, key).Scan(&output)
	if err != nil {
		return nil, false
	}

	res := &document.Result{Output: output}

	rows, err := c.db.Query(`SELECT name, data FROM figures WHERE key = ? ORDER BY ord`, key)
	if err != nil {
		return nil, false
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var data []byte
		if err := rows.Scan(&name, &data); err != nil {
			return nil, false
		}
		if err := os.MkdirAll(figDir, 0o755); err != nil {
			return nil, false
		}
		if err := os.WriteFile(filepath.Join(figDir, name), data, 0o644); err != nil {
			return nil, false
		}
		res.Images = append(res.Images, name)
	}
	if rows.Err() != nil {
		return nil, false
	}
	return res, true
}

// Put stores a successful block result, reading figure bytes from figDir.
func (c *Cache) Put(key string, res *document.Result, figDir string) error {
	if res.Failed() {
		return fmt.Errorf("refusing to cache failed block")
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin cache write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO blocks (key, output, created_at) VALUES (?, ?, ?)`,
		key, res.Output, time.Now().Unix()); err != nil {
		return fmt.Errorf("store block: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM figures WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clear figures: %w", err)
	}
	for i, name := range res.Images {
		data, err := os.ReadFile(filepath.Join(figDir, name))
		if err != nil {
			return fmt.Errorf("read figure %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO figures (key, ord, name, data) VALUES (?, ?, ?, ?)`,
			key, i, name, data); err != nil {
			return fmt.Errorf("store figure %s: %w", name, err)
		}
	}
	return tx.Commit()
}
