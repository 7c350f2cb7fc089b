// Package metacache provides an opt-in on-disk cache of fetched CSL-JSON
// metadata documents, keyed by normalized DOI. By default the cleaner
// fetches fresh per record; the cache only serves repeated runs over the
// same bibliography.
package metacache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"bibclean/internal/crossref"
	"bibclean/internal/csl"
)

// Cache wraps a SQLite database of DOI -> CSL-JSON documents.
type Cache struct {
	db *sql.DB
}

// Open opens or creates a cache database at the given path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			doi        TEXT PRIMARY KEY,
			csl_json   TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached document for a DOI, or ok=false on a miss.
// A row that no longer unmarshals is treated as a miss.
func (c *Cache) Get(doi string) (*csl.Document, bool, error) {
	var raw string
	err := c.db.QueryRow(
		`SELECT csl_json FROM metadata WHERE doi = ?`,
		crossref.NormalizeDOI(doi),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache: %w", err)
	}

	var doc csl.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false, nil
	}
	return &doc, true, nil
}

// Put stores a document for a DOI, replacing any previous entry.
func (c *Cache) Put(doi string, doc *csl.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO metadata (doi, csl_json, fetched_at) VALUES (?, ?, ?)`,
		crossref.NormalizeDOI(doi), string(raw), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}
