package index

import (
	"database/sql"
	"strings"
)

const defaultSearchLimit = 20

// searchTerms splits a user query into whitespace-separated terms.
func searchTerms(query string) []string {
	return strings.Fields(query)
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.URL, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
