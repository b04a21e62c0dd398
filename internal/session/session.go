// Package session owns the Session side of the ingestion model: upserts keyed
// by (owner, external id), aggregate counters, the bounded searchable-text
// projection, and the deletion cascade.
package session

import (
	"errors"

	"github.com/sessionvault/sessionvault/internal/db"
)

var (
	// ErrUnauthenticated is returned by every write path that is missing an
	// owner identity.
	ErrUnauthenticated = errors.New("missing owner identity")

	ErrNotFound = errors.New("session not found")
)

// SearchableTextLimit bounds the searchable-text projection. Text is only
// ever appended, never rebuilt, so the cap is the sole way content leaves it.
const SearchableTextLimit = 10000

// DefaultSource tags sessions auto-created by a message upsert whose payload
// carried no plugin identity.
const DefaultSource = "unknown"

type Session struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id"`
	ExternalID       string  `json:"external_id"`
	Title            string  `json:"title"`
	ProjectPath      string  `json:"project_path"`
	ProjectName      string  `json:"project_name"`
	Model            string  `json:"model"`
	Provider         string  `json:"provider"`
	Source           string  `json:"source"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	Cost             float64 `json:"cost"`
	DurationMs       int64   `json:"duration_ms"`
	IsPublic         bool    `json:"is_public"`
	PublicSlug       string  `json:"public_slug"`
	SearchableText   string  `json:"searchable_text"`
	MessageCount     int64   `json:"message_count"`
	EvalReady        bool    `json:"eval_ready"`
	EvalTags         string  `json:"eval_tags"`
	EvalNotes        string  `json:"eval_notes"`
	CreatedAt        int64   `json:"created_at"`
	UpdatedAt        int64   `json:"updated_at"`
}

// FromDB converts a stored row into the service-level session.
func FromDB(s db.Session) Session {
	return Session{
		ID:               s.ID,
		UserID:           s.UserID,
		ExternalID:       s.ExternalID,
		Title:            s.Title,
		ProjectPath:      s.ProjectPath,
		ProjectName:      s.ProjectName,
		Model:            s.Model,
		Provider:         s.Provider,
		Source:           s.Source,
		PromptTokens:     s.PromptTokens,
		CompletionTokens: s.CompletionTokens,
		TotalTokens:      s.TotalTokens,
		Cost:             s.Cost,
		DurationMs:       s.DurationMs,
		IsPublic:         s.IsPublic != 0,
		PublicSlug:       s.PublicSlug,
		SearchableText:   s.SearchableText,
		MessageCount:     s.MessageCount,
		EvalReady:        s.EvalReady != 0,
		EvalTags:         s.EvalTags,
		EvalNotes:        s.EvalNotes,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// AppendSearchableText appends addition to existing with a space separator
// and truncates the result to SearchableTextLimit characters.
func AppendSearchableText(existing, addition string) string {
	if addition == "" {
		return existing
	}
	combined := addition
	if existing != "" {
		combined = existing + " " + addition
	}
	runes := []rune(combined)
	if len(runes) > SearchableTextLimit {
		return string(runes[:SearchableTextLimit])
	}
	return combined
}
