//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS clips_fts USING fts5(
			path UNINDEXED,
			title,
			body,
			keywords,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, title, body string, keywords []string) error {
	ftsDelete(tx, path)
	_, err := tx.Exec(`INSERT INTO clips_fts (path, title, body, keywords) VALUES (?, ?, ?, ?)`,
		path, title, body, strings.Join(keywords, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM clips_fts WHERE path = ?`, path)
}

// matchExpr quotes every term so that user input is never parsed as FTS5
// query syntax. Terms are ANDed.
func matchExpr(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

// Search ranks clips with FTS5 and highlights the matching body fragment.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	terms := searchTerms(query)
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}
	rows, err := db.conn.Query(`
		SELECT f.path,
		       f.title,
		       c.url,
		       snippet(clips_fts, 2, '<b>', '</b>', '...', 64)
		FROM clips_fts f
		JOIN clips c ON c.path = f.path
		WHERE clips_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, matchExpr(terms), limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
