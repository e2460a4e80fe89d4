package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ClipRow represents a row in the clips table.
type ClipRow struct {
	Path      string
	Title     string
	URL       string
	Checksum  string
	Keywords  []string
	ClippedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Setting returns the value stored under key.
func (db *DB) Setting(key string) (string, bool, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("index: get setting %s: %w", key, err)
	}
	return v, true, nil
}

// SetSetting stores value under key, replacing any previous value.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: set setting %s: %w", key, err)
	}
	return nil
}

// UpsertClip inserts or replaces a clip and its FTS entry within a transaction.
func (db *DB) UpsertClip(c ClipRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	keywords := c.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	keywordsJSON, _ := json.Marshal(keywords)

	var clippedAt any
	if !c.ClippedAt.IsZero() {
		clippedAt = c.ClippedAt.UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO clips (path, title, url, checksum, keywords, body, clipped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			url        = excluded.url,
			checksum   = excluded.checksum,
			keywords   = excluded.keywords,
			body       = excluded.body,
			clipped_at = excluded.clipped_at
	`, c.Path, c.Title, c.URL, c.Checksum, string(keywordsJSON), body, clippedAt)
	if err != nil {
		return fmt.Errorf("index: upsert clip: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, c.Path, c.Title, body, keywords); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteClip removes a clip and its FTS entry.
func (db *DB) DeleteClip(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM clips WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete clip: %w", err)
	}
	return tx.Commit()
}

// AllChecksums returns the stored checksum of every indexed clip.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM clips`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
