package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sessionvault/sessionvault/internal/db"
	"github.com/sessionvault/sessionvault/internal/pubsub"
)

// UpsertParams carries the fields a plugin may supply. Empty strings and
// zero numbers mean "not supplied": on merge they keep the existing value,
// so a sparse re-delivery never erases previously known data.
type UpsertParams struct {
	UserID           string
	ExternalID       string
	Title            string
	ProjectPath      string
	ProjectName      string
	Model            string
	Provider         string
	Source           string
	PromptTokens     int64
	CompletionTokens int64
	Cost             float64
	DurationMs       int64
}

type Service interface {
	pubsub.Subscriber[Session]
	Upsert(ctx context.Context, params UpsertParams) (Session, error)
	Get(ctx context.Context, userID, id string) (Session, error)
	List(ctx context.Context, userID string) ([]Session, error)
	Delete(ctx context.Context, userID, id string) error
}

type service struct {
	*pubsub.Broker[Session]
	conn *sql.DB
	q    *db.Queries
}

func NewService(conn *sql.DB) Service {
	return &service{
		Broker: pubsub.NewBroker[Session](),
		conn:   conn,
		q:      db.New(conn),
	}
}

func (s *service) Upsert(ctx context.Context, params UpsertParams) (Session, error) {
	if params.UserID == "" {
		return Session{}, ErrUnauthenticated
	}
	if params.ExternalID == "" {
		return Session{}, fmt.Errorf("missing session external id")
	}

	var (
		result  db.Session
		created bool
	)
	err := db.RetryConflicts(ctx, func(ctx context.Context) error {
		return s.inTx(ctx, func(q *db.Queries) error {
			var err error
			result, created, err = UpsertTx(ctx, q, params)
			return err
		})
	})
	if err != nil {
		return Session{}, err
	}

	out := FromDB(result)
	if created {
		s.Publish(pubsub.CreatedEvent, out)
	} else {
		s.Publish(pubsub.UpdatedEvent, out)
	}
	return out, nil
}

// UpsertTx applies session upsert semantics inside an existing transaction.
// It is shared with the message service so that a message upsert can
// auto-create its session atomically. Returns the row and whether it was
// created.
func UpsertTx(ctx context.Context, q *db.Queries, params UpsertParams) (db.Session, bool, error) {
	now := time.Now().UnixMilli()

	existing, err := q.GetSessionByExternalID(ctx, db.GetSessionByExternalIDParams{
		UserID:     params.UserID,
		ExternalID: params.ExternalID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		created, err := q.CreateSession(ctx, db.CreateSessionParams{
			ID:               uuid.New().String(),
			UserID:           params.UserID,
			ExternalID:       params.ExternalID,
			Title:            params.Title,
			ProjectPath:      params.ProjectPath,
			ProjectName:      params.ProjectName,
			Model:            params.Model,
			Provider:         params.Provider,
			Source:           params.Source,
			PromptTokens:     params.PromptTokens,
			CompletionTokens: params.CompletionTokens,
			TotalTokens:      params.PromptTokens + params.CompletionTokens,
			Cost:             params.Cost,
			DurationMs:       params.DurationMs,
			SearchableText:   params.Title,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if err != nil {
			return db.Session{}, false, err
		}
		return created, true, nil
	}
	if err != nil {
		return db.Session{}, false, err
	}

	promptTokens := mergeInt64(existing.PromptTokens, params.PromptTokens)
	completionTokens := mergeInt64(existing.CompletionTokens, params.CompletionTokens)
	updated, err := q.UpdateSession(ctx, db.UpdateSessionParams{
		ID:               existing.ID,
		Title:            mergeString(existing.Title, params.Title),
		ProjectPath:      mergeString(existing.ProjectPath, params.ProjectPath),
		ProjectName:      mergeString(existing.ProjectName, params.ProjectName),
		Model:            mergeString(existing.Model, params.Model),
		Provider:         mergeString(existing.Provider, params.Provider),
		Source:           mergeString(existing.Source, params.Source),
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Cost:             mergeFloat64(existing.Cost, params.Cost),
		DurationMs:       mergeInt64(existing.DurationMs, params.DurationMs),
		IsPublic:         existing.IsPublic,
		PublicSlug:       existing.PublicSlug,
		SearchableText:   existing.SearchableText,
		MessageCount:     existing.MessageCount,
		EvalReady:        existing.EvalReady,
		EvalTags:         existing.EvalTags,
		EvalNotes:        existing.EvalNotes,
		UpdatedAt:        now,
	})
	if err != nil {
		return db.Session{}, false, err
	}
	return updated, false, nil
}

func (s *service) Get(ctx context.Context, userID, id string) (Session, error) {
	if userID == "" {
		return Session{}, ErrUnauthenticated
	}
	dbSession, err := s.q.GetSession(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	if dbSession.UserID != userID {
		return Session{}, ErrNotFound
	}
	return FromDB(dbSession), nil
}

func (s *service) List(ctx context.Context, userID string) ([]Session, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	dbSessions, err := s.q.ListSessionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sessions := make([]Session, len(dbSessions))
	for i, dbSession := range dbSessions {
		sessions[i] = FromDB(dbSession)
	}
	return sessions, nil
}

// Delete removes the session and everything hanging off it: messages, parts
// and the stored embedding, all in one transaction.
func (s *service) Delete(ctx context.Context, userID, id string) error {
	deleted, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, func(q *db.Queries) error {
		if err := q.DeletePartsBySession(ctx, id); err != nil {
			return err
		}
		if err := q.DeleteMessagesBySession(ctx, id); err != nil {
			return err
		}
		if err := q.DeleteSessionEmbedding(ctx, id); err != nil {
			return err
		}
		return q.DeleteSession(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.Debug("session deleted", "session_id", id, "user_id", userID)
	s.Publish(pubsub.DeletedEvent, deleted)
	return nil
}

func (s *service) inTx(ctx context.Context, fn func(q *db.Queries) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(s.q.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func mergeString(existing, incoming string) string {
	if incoming != "" {
		return incoming
	}
	return existing
}

func mergeInt64(existing, incoming int64) int64 {
	if incoming != 0 {
		return incoming
	}
	return existing
}

func mergeFloat64(existing, incoming float64) float64 {
	if incoming != 0 {
		return incoming
	}
	return existing
}
