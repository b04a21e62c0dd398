// Package search is the retrieval engine: lexical FTS5 queries over the
// session and message projections, brute-force cosine retrieval over stored
// session embeddings, and a rank-fusion hybrid of the two.
package search

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sessionvault/sessionvault/internal/db"
	"github.com/sessionvault/sessionvault/internal/embedding"
	"github.com/sessionvault/sessionvault/internal/message"
	"github.com/sessionvault/sessionvault/internal/session"
)

// ErrEmptyQuery is returned by message search, where a blank query is a
// caller mistake. Session search treats a blank query as an empty result
// instead.
var ErrEmptyQuery = errors.New("search query is empty")

const (
	// DefaultLimit applies when a caller passes a non-positive limit.
	DefaultLimit = 20

	// DefaultSemanticWeight balances the hybrid legs evenly.
	DefaultSemanticWeight = 0.5

	// semanticOverfetch widens the candidate pool before dead embeddings
	// (sessions deleted since indexing) are filtered out.
	semanticOverfetch = 2
)

// MessagesOptions narrows and pages a message search.
type MessagesOptions struct {
	SessionID string
	Limit     int
	Offset    int
}

type Service struct {
	q        *db.Queries
	embedder embedding.Embedder
}

// NewService builds the search service. A nil embedder keeps lexical search
// working; the semantic and hybrid modes fail with
// embedding.ErrNotConfigured, leaving lexical as the degraded path.
func NewService(conn *sql.DB, embedder embedding.Embedder) *Service {
	return &Service{
		q:        db.New(conn),
		embedder: embedder,
	}
}

// Sessions runs a lexical full-text search over the owner's sessions. A blank
// query matches nothing.
func (s *Service) Sessions(ctx context.Context, userID, query string, limit int) ([]session.Session, error) {
	if userID == "" {
		return nil, session.ErrUnauthenticated
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.q.SearchSessions(ctx, db.SearchSessionsParams{
		UserID: userID,
		Query:  sanitizeQuery(query),
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, err
	}

	sessions := make([]session.Session, len(rows))
	for i, row := range rows {
		sessions[i] = session.FromDB(row)
	}
	return sessions, nil
}

// Messages runs a lexical full-text search over the owner's messages,
// optionally narrowed to one session.
func (s *Service) Messages(ctx context.Context, userID, query string, opts MessagesOptions) ([]message.Message, error) {
	if userID == "" {
		return nil, session.ErrUnauthenticated
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.q.SearchMessages(ctx, db.SearchMessagesParams{
		UserID:    userID,
		Query:     sanitizeQuery(query),
		SessionID: opts.SessionID,
		Limit:     int64(limit),
		Offset:    int64(offset),
	})
	if err != nil {
		return nil, err
	}

	messages := make([]message.Message, len(rows))
	for i, row := range rows {
		messages[i] = message.FromDB(row)
	}
	return messages, nil
}

// Semantic embeds the query and ranks the owner's sessions by cosine
// similarity against their stored embeddings. It overfetches candidates so
// that embeddings whose session has since disappeared do not shrink the
// result below the limit.
func (s *Service) Semantic(ctx context.Context, userID, query string, limit int) ([]session.Session, error) {
	if userID == "" {
		return nil, session.ErrUnauthenticated
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if s.embedder == nil {
		return nil, embedding.ErrNotConfigured
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	records, err := s.q.ListSessionEmbeddingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		sessionID string
		score     float64
	}
	candidates := make([]candidate, 0, len(records))
	for _, rec := range records {
		score := embedding.Cosine(queryVector, embedding.DecodeVector(rec.Embedding))
		if score <= 0 {
			continue
		}
		candidates = append(candidates, candidate{sessionID: rec.SessionID, score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > limit*semanticOverfetch {
		candidates = candidates[:limit*semanticOverfetch]
	}

	seen := make(map[string]bool, len(candidates))
	var sessions []session.Session
	for _, c := range candidates {
		if seen[c.sessionID] {
			continue
		}
		seen[c.sessionID] = true

		row, err := s.q.GetSession(ctx, c.sessionID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if row.UserID != userID {
			continue
		}
		sessions = append(sessions, session.FromDB(row))
		if len(sessions) == limit {
			break
		}
	}
	return sessions, nil
}

// Hybrid runs the lexical and semantic legs concurrently and fuses their
// rankings by weighted position score. semanticWeight is clamped to [0, 1];
// pass DefaultSemanticWeight for an even split. Without an embedder it fails
// with embedding.ErrNotConfigured, the same as Semantic; callers wanting the
// degraded path use Sessions directly.
func (s *Service) Hybrid(ctx context.Context, userID, query string, limit int, semanticWeight float64) ([]session.Session, error) {
	if userID == "" {
		return nil, session.ErrUnauthenticated
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if semanticWeight < 0 {
		semanticWeight = 0
	}
	if semanticWeight > 1 {
		semanticWeight = 1
	}

	var lexical, semantic []session.Session
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexical, err = s.Sessions(gctx, userID, query, limit)
		return err
	})
	g.Go(func() error {
		var err error
		semantic, err = s.Semantic(gctx, userID, query, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return fuse(lexical, semantic, semanticWeight, limit), nil
}
