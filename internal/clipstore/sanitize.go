package clipstore

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/starford/clipper/internal/models"
)

// invalidTitleChars break paths or wikilinks on at least one platform.
const invalidTitleChars = `:/\?%*|"<>`

// MaxTitleLength is the longest sanitized title, in characters.
const MaxTitleLength = 50

const nameLayout = "2006-01-02 15:04"

// SanitizeTitle makes title safe for use in a file name: each invalid
// character becomes '-', control characters become spaces, and the result
// is cut to MaxTitleLength characters with surrounding whitespace removed.
func SanitizeTitle(title string) string {
	s := norm.NFC.String(strings.TrimSpace(title))
	s = strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(invalidTitleChars, r):
			return '-'
		case unicode.IsControl(r):
			return ' '
		}
		return r
	}, s)
	if utf8.RuneCountInString(s) > MaxTitleLength {
		s = string([]rune(s)[:MaxTitleLength])
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return models.DefaultTitle
	}
	return s
}

// ClipName returns the clip file name without extension:
// "<YYYY-MM-DD HH:mm> <sanitized title>".
func ClipName(at time.Time, title string) string {
	return at.Format(nameLayout) + " " + SanitizeTitle(title)
}
