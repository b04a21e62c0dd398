// Package message owns the Message/Part side of ingestion: create-or-patch
// upserts keyed by a message's external id, wholesale part replacement, the
// session auto-vivify path, and the aggregate counters a new message adds to
// its session.
package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sessionvault/sessionvault/internal/db"
	"github.com/sessionvault/sessionvault/internal/pubsub"
	"github.com/sessionvault/sessionvault/internal/session"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
	RoleUnknown   Role = "unknown"
)

var (
	ErrNotFound = errors.New("message not found")

	// ErrForeignExternalID is returned when a message external id already
	// belongs to a session owned by a different user. External ids are
	// globally unique, so a colliding plugin id must not let one tenant
	// patch another tenant's message.
	ErrForeignExternalID = errors.New("message external id belongs to another owner")
)

type Message struct {
	ID               string `json:"id"`
	SessionID        string `json:"session_id"`
	ExternalID       string `json:"external_id"`
	Role             Role   `json:"role"`
	TextContent      string `json:"text_content"`
	Model            string `json:"model"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	DurationMs       int64  `json:"duration_ms"`
	CreatedAt        int64  `json:"created_at"`
	Parts            []Part `json:"parts,omitempty"`
}

// UpsertParams carries one message delivery. Zero values mean "not supplied"
// and keep the stored value on patch. A nil Parts slice leaves the stored
// parts untouched; a non-nil one (even empty) replaces them wholesale.
type UpsertParams struct {
	UserID            string
	SessionExternalID string
	ExternalID        string
	Role              Role
	TextContent       string
	Model             string
	PromptTokens      int64
	CompletionTokens  int64
	DurationMs        int64
	Source            string
	Parts             []IncomingPart
}

type Service interface {
	pubsub.Subscriber[Message]
	Upsert(ctx context.Context, params UpsertParams) (Message, error)
	Get(ctx context.Context, id string) (Message, error)
	List(ctx context.Context, sessionID string) ([]Message, error)
}

type service struct {
	*pubsub.Broker[Message]
	conn *sql.DB
	q    *db.Queries
}

func NewService(conn *sql.DB) Service {
	return &service{
		Broker: pubsub.NewBroker[Message](),
		conn:   conn,
		q:      db.New(conn),
	}
}

// Upsert accepts one possibly-repeated, possibly-out-of-order message
// delivery and converges on one consistent row:
//
//  1. resolve the session, auto-creating a placeholder when the message
//     arrives before its session
//  2. create the message (growing the session's token aggregates and message
//     count) or patch it (aggregates untouched)
//  3. replace the part list wholesale when one is supplied
//  4. append extracted text-part text to the session's bounded
//     searchable-text projection
//
// The whole call runs in one transaction and retries on uniqueness
// conflicts, so it is safe to redeliver.
func (s *service) Upsert(ctx context.Context, params UpsertParams) (Message, error) {
	if params.UserID == "" {
		return Message{}, session.ErrUnauthenticated
	}
	if params.SessionExternalID == "" || params.ExternalID == "" {
		return Message{}, fmt.Errorf("missing message identity")
	}
	if params.Role == "" {
		params.Role = RoleUnknown
	}

	var (
		result  Message
		created bool
	)
	err := db.RetryConflicts(ctx, func(ctx context.Context) error {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		result, created, err = s.upsertTx(ctx, s.q.WithTx(tx), params)
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return Message{}, err
	}

	if created {
		s.Publish(pubsub.CreatedEvent, result)
	} else {
		s.Publish(pubsub.UpdatedEvent, result)
	}
	return result, nil
}

func (s *service) upsertTx(ctx context.Context, q *db.Queries, params UpsertParams) (Message, bool, error) {
	now := time.Now().UnixMilli()

	sess, err := s.resolveSession(ctx, q, params)
	if err != nil {
		return Message{}, false, fmt.Errorf("failed to resolve session %q: %w", params.SessionExternalID, err)
	}

	var (
		dbMessage db.Message
		created   bool
	)
	dbMessage, err = q.GetMessageByExternalID(ctx, params.ExternalID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		dbMessage, err = q.CreateMessage(ctx, db.CreateMessageParams{
			ID:               uuid.New().String(),
			SessionID:        sess.ID,
			ExternalID:       params.ExternalID,
			Role:             string(params.Role),
			TextContent:      params.TextContent,
			Model:            params.Model,
			PromptTokens:     params.PromptTokens,
			CompletionTokens: params.CompletionTokens,
			DurationMs:       params.DurationMs,
			CreatedAt:        now,
		})
		if err != nil {
			return Message{}, false, err
		}
		created = true

		// The only point where session aggregates grow from message data.
		// A later patch of the same message leaves them alone.
		sess.PromptTokens += params.PromptTokens
		sess.CompletionTokens += params.CompletionTokens
		sess.TotalTokens = sess.PromptTokens + sess.CompletionTokens
		sess.MessageCount++

	case err != nil:
		return Message{}, false, err

	default:
		if dbMessage.SessionID != sess.ID {
			owner, err := q.GetSession(ctx, dbMessage.SessionID)
			if err != nil {
				return Message{}, false, err
			}
			if owner.UserID != params.UserID {
				return Message{}, false, ErrForeignExternalID
			}
			// Same owner, different session: the message stays where it was
			// created; session binding is immutable.
			sess = owner
		}
		dbMessage, err = q.UpdateMessage(ctx, db.UpdateMessageParams{
			ID:               dbMessage.ID,
			TextContent:      patchString(dbMessage.TextContent, params.TextContent),
			Model:            patchString(dbMessage.Model, params.Model),
			PromptTokens:     patchInt64(dbMessage.PromptTokens, params.PromptTokens),
			CompletionTokens: patchInt64(dbMessage.CompletionTokens, params.CompletionTokens),
			DurationMs:       patchInt64(dbMessage.DurationMs, params.DurationMs),
		})
		if err != nil {
			return Message{}, false, err
		}
	}

	var parts []Part
	if params.Parts != nil {
		if err := q.DeletePartsByMessage(ctx, dbMessage.ID); err != nil {
			return Message{}, false, err
		}
		parts = make([]Part, len(params.Parts))
		for i, incoming := range params.Parts {
			parts[i] = DecodePart(incoming)
			typ, content, err := encodePart(parts[i])
			if err != nil {
				return Message{}, false, err
			}
			if err := q.CreatePart(ctx, db.CreatePartParams{
				ID:        uuid.New().String(),
				MessageID: dbMessage.ID,
				Type:      typ,
				Content:   content,
				Position:  int64(i),
			}); err != nil {
				return Message{}, false, err
			}
		}
		// Only freshly delivered parts feed the projection; re-appending
		// stored parts on every patch would duplicate their text.
		if text := textFromParts(parts); text != "" {
			sess.SearchableText = session.AppendSearchableText(sess.SearchableText, text)
		}
	} else {
		dbParts, err := q.ListPartsByMessage(ctx, dbMessage.ID)
		if err != nil {
			return Message{}, false, err
		}
		parts, err = partsFromDB(dbParts)
		if err != nil {
			return Message{}, false, err
		}
	}
	if _, err := q.UpdateSession(ctx, db.UpdateSessionParams{
		ID:               sess.ID,
		Title:            sess.Title,
		ProjectPath:      sess.ProjectPath,
		ProjectName:      sess.ProjectName,
		Model:            sess.Model,
		Provider:         sess.Provider,
		Source:           sess.Source,
		PromptTokens:     sess.PromptTokens,
		CompletionTokens: sess.CompletionTokens,
		TotalTokens:      sess.TotalTokens,
		Cost:             sess.Cost,
		DurationMs:       sess.DurationMs,
		IsPublic:         sess.IsPublic,
		PublicSlug:       sess.PublicSlug,
		SearchableText:   sess.SearchableText,
		MessageCount:     sess.MessageCount,
		EvalReady:        sess.EvalReady,
		EvalTags:         sess.EvalTags,
		EvalNotes:        sess.EvalNotes,
		UpdatedAt:        now,
	}); err != nil {
		return Message{}, false, err
	}

	out := FromDB(dbMessage)
	out.Parts = parts
	return out, created, nil
}

// resolveSession finds the session a message belongs to, creating a zeroed
// placeholder when the message arrives before its session upsert. This keeps
// message delivery order-independent with respect to session delivery.
func (s *service) resolveSession(ctx context.Context, q *db.Queries, params UpsertParams) (db.Session, error) {
	sess, err := q.GetSessionByExternalID(ctx, db.GetSessionByExternalIDParams{
		UserID:     params.UserID,
		ExternalID: params.SessionExternalID,
	})
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return db.Session{}, err
	}

	source := params.Source
	if source == "" {
		source = session.DefaultSource
	}
	slog.Debug("auto-creating placeholder session",
		"user_id", params.UserID,
		"session_external_id", params.SessionExternalID,
		"source", source)

	sess, _, err = session.UpsertTx(ctx, q, session.UpsertParams{
		UserID:     params.UserID,
		ExternalID: params.SessionExternalID,
		Source:     source,
	})
	return sess, err
}

func (s *service) Get(ctx context.Context, id string) (Message, error) {
	dbMessage, err := s.q.GetMessage(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, err
	}
	dbParts, err := s.q.ListPartsByMessage(ctx, id)
	if err != nil {
		return Message{}, err
	}
	parts, err := partsFromDB(dbParts)
	if err != nil {
		return Message{}, err
	}
	out := FromDB(dbMessage)
	out.Parts = parts
	return out, nil
}

func (s *service) List(ctx context.Context, sessionID string) ([]Message, error) {
	dbMessages, err := s.q.ListMessagesBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	messages := make([]Message, len(dbMessages))
	for i, dbMessage := range dbMessages {
		dbParts, err := s.q.ListPartsByMessage(ctx, dbMessage.ID)
		if err != nil {
			return nil, err
		}
		parts, err := partsFromDB(dbParts)
		if err != nil {
			return nil, err
		}
		messages[i] = FromDB(dbMessage)
		messages[i].Parts = parts
	}
	return messages, nil
}

func FromDB(m db.Message) Message {
	return Message{
		ID:               m.ID,
		SessionID:        m.SessionID,
		ExternalID:       m.ExternalID,
		Role:             Role(m.Role),
		TextContent:      m.TextContent,
		Model:            m.Model,
		PromptTokens:     m.PromptTokens,
		CompletionTokens: m.CompletionTokens,
		DurationMs:       m.DurationMs,
		CreatedAt:        m.CreatedAt,
	}
}

func partsFromDB(dbParts []db.Part) ([]Part, error) {
	parts := make([]Part, len(dbParts))
	for i, p := range dbParts {
		part, err := decodeStoredPart(p.Type, p.Content)
		if err != nil {
			return nil, err
		}
		parts[i] = part
	}
	return parts, nil
}

// Patch semantics: an incoming value wins only if it is present; zero values
// keep what is already stored.
func patchString(existing, incoming string) string {
	if incoming != "" {
		return incoming
	}
	return existing
}

func patchInt64(existing, incoming int64) int64 {
	if incoming != 0 {
		return incoming
	}
	return existing
}

// textFromParts joins the text of every text part with spaces; this is the
// increment appended to the session's searchable-text projection.
func textFromParts(parts []Part) string {
	var texts []string
	for _, part := range parts {
		if p, ok := part.(TextPart); ok && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, " ")
}
