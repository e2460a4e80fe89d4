// Package models defines the domain types for the clip helper.
package models

import (
	"strings"
	"time"
)

// MessageTypeClip is the only request type the helper understands.
const MessageTypeClip = "clip"

// DefaultTitle is used when a clip arrives without a usable title.
const DefaultTitle = "Untitled"

// RawMetadata is the loosely-typed metadata object produced by the
// extension's extraction step.
type RawMetadata map[string]any

// ClipRequest is one decoded "clip" message. Pointers distinguish absent
// fields from empty ones.
type ClipRequest struct {
	Type     string      `json:"type"`
	Content  *string     `json:"content"`
	Metadata RawMetadata `json:"metadata"`
}

// ClipMetadata is the normalized metadata written into a clip's frontmatter.
type ClipMetadata struct {
	Title     string
	URL       string
	Author    *string
	Keywords  []string
	Date      string
	Excerpt   *string
	ClippedAt time.Time
}

// Normalize converts raw metadata into ClipMetadata. Fields with the wrong
// JSON type are treated as absent. now is the capture time.
func (m RawMetadata) Normalize(now time.Time) ClipMetadata {
	out := ClipMetadata{
		Title:     DefaultTitle,
		Keywords:  []string{},
		Date:      now.Format(time.RFC3339),
		ClippedAt: now,
	}
	if s, ok := m.str("title"); ok {
		if t := strings.TrimSpace(s); t != "" {
			out.Title = t
		}
	}
	if s, ok := m.str("url"); ok {
		out.URL = s
	}
	if s, ok := m.str("author"); ok {
		out.Author = &s
	}
	if s, ok := m.str("date"); ok {
		out.Date = s
	}
	if s, ok := m.str("excerpt"); ok {
		out.Excerpt = &s
	}
	if raw, ok := m["keywords"].([]any); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok {
				out.Keywords = append(out.Keywords, s)
			}
		}
	}
	return out
}

func (m RawMetadata) str(key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// Response is the payload written back to the browser.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK builds a success response.
func OK(message string) Response {
	return Response{Success: true, Message: message}
}

// Fail builds an error response.
func Fail(err string) Response {
	return Response{Success: false, Error: err}
}
