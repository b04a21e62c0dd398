// Package embedding turns a session's accumulated text into one stored
// vector per session, keyed to the owning user so retrieval stays inside the
// tenant boundary.
package embedding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/sessionvault/sessionvault/internal/db"
	"github.com/sessionvault/sessionvault/internal/message"
	"github.com/sessionvault/sessionvault/internal/session"
)

// ErrNotConfigured is returned when no embedding provider is available.
// Lexical search is the degraded path in that case.
var ErrNotConfigured = errors.New("embedding provider is not configured")

// Embedder generates an embedding vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Indexer struct {
	q        *db.Queries
	messages message.Service
	embedder Embedder
}

func NewIndexer(conn *sql.DB, messages message.Service, embedder Embedder) *Indexer {
	return &Indexer{
		q:        db.New(conn),
		messages: messages,
		embedder: embedder,
	}
}

// BuildText concatenates the session title with each message's text, ordered
// by creation time. A message contributes its flattened text content when it
// has one, otherwise the join of its text parts; blank messages are skipped.
func BuildText(sess session.Session, messages []message.Message) string {
	var texts []string
	for _, msg := range messages {
		text := msg.TextContent
		if text == "" {
			var partTexts []string
			for _, part := range msg.Parts {
				if p, ok := part.(message.TextPart); ok && p.Text != "" {
					partTexts = append(partTexts, p.Text)
				}
			}
			text = strings.Join(partTexts, " ")
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	return strings.TrimSpace(sess.Title + "\n\n" + strings.Join(texts, "\n"))
}

// Index embeds the session's content and upserts its embedding record. It is
// idempotent: a session with no text is a no-op, and an unchanged content
// hash skips the provider call, so a crashed or redelivered indexing attempt
// never produces duplicate vectors.
func (ix *Indexer) Index(ctx context.Context, userID, sessionID string) error {
	if userID == "" {
		return session.ErrUnauthenticated
	}
	if ix.embedder == nil {
		return ErrNotConfigured
	}

	dbSession, err := ix.q.GetSession(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return session.ErrNotFound
	}
	if err != nil {
		return err
	}
	if dbSession.UserID != userID {
		return session.ErrNotFound
	}

	messages, err := ix.messages.List(ctx, sessionID)
	if err != nil {
		return err
	}

	text := BuildText(session.FromDB(dbSession), messages)
	if text == "" {
		return nil
	}

	hash := fmt.Sprintf("%016x", xxh3.HashString(text))
	existing, err := ix.q.GetSessionEmbedding(ctx, sessionID)
	if err == nil && existing.ContentHash == hash {
		slog.Debug("embedding up to date", "session_id", sessionID)
		return nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	vector, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed session %q: %w", sessionID, err)
	}

	return ix.q.UpsertSessionEmbedding(ctx, db.UpsertSessionEmbeddingParams{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		UserID:      userID,
		Embedding:   EncodeVector(vector),
		ContentHash: hash,
		CreatedAt:   time.Now().UnixMilli(),
	})
}
