package db

import (
	"context"
)

const sessionColumns = `id, user_id, external_id, title, project_path, project_name,
	model, provider, source, prompt_tokens, completion_tokens, total_tokens,
	cost, duration_ms, is_public, public_slug, searchable_text, message_count,
	eval_ready, eval_tags, eval_notes, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var s Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.ExternalID,
		&s.Title,
		&s.ProjectPath,
		&s.ProjectName,
		&s.Model,
		&s.Provider,
		&s.Source,
		&s.PromptTokens,
		&s.CompletionTokens,
		&s.TotalTokens,
		&s.Cost,
		&s.DurationMs,
		&s.IsPublic,
		&s.PublicSlug,
		&s.SearchableText,
		&s.MessageCount,
		&s.EvalReady,
		&s.EvalTags,
		&s.EvalNotes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

type CreateSessionParams struct {
	ID               string
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
	TotalTokens      int64
	Cost             float64
	DurationMs       int64
	SearchableText   string
	CreatedAt        int64
	UpdatedAt        int64
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	row := q.db.QueryRowContext(ctx, `
INSERT INTO sessions (
	id, user_id, external_id, title, project_path, project_name,
	model, provider, source, prompt_tokens, completion_tokens, total_tokens,
	cost, duration_ms, searchable_text, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING `+sessionColumns,
		arg.ID,
		arg.UserID,
		arg.ExternalID,
		arg.Title,
		arg.ProjectPath,
		arg.ProjectName,
		arg.Model,
		arg.Provider,
		arg.Source,
		arg.PromptTokens,
		arg.CompletionTokens,
		arg.TotalTokens,
		arg.Cost,
		arg.DurationMs,
		arg.SearchableText,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanSession(row)
}

func (q *Queries) GetSession(ctx context.Context, id string) (Session, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

type GetSessionByExternalIDParams struct {
	UserID     string
	ExternalID string
}

func (q *Queries) GetSessionByExternalID(ctx context.Context, arg GetSessionByExternalIDParams) (Session, error) {
	row := q.db.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM sessions
WHERE user_id = ? AND external_id = ?`,
		arg.UserID, arg.ExternalID)
	return scanSession(row)
}

type UpdateSessionParams struct {
	ID               string
	Title            string
	ProjectPath      string
	ProjectName      string
	Model            string
	Provider         string
	Source           string
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	Cost             float64
	DurationMs       int64
	IsPublic         int64
	PublicSlug       string
	SearchableText   string
	MessageCount     int64
	EvalReady        int64
	EvalTags         string
	EvalNotes        string
	UpdatedAt        int64
}

func (q *Queries) UpdateSession(ctx context.Context, arg UpdateSessionParams) (Session, error) {
	row := q.db.QueryRowContext(ctx, `
UPDATE sessions SET
	title = ?,
	project_path = ?,
	project_name = ?,
	model = ?,
	provider = ?,
	source = ?,
	prompt_tokens = ?,
	completion_tokens = ?,
	total_tokens = ?,
	cost = ?,
	duration_ms = ?,
	is_public = ?,
	public_slug = ?,
	searchable_text = ?,
	message_count = ?,
	eval_ready = ?,
	eval_tags = ?,
	eval_notes = ?,
	updated_at = ?
WHERE id = ?
RETURNING `+sessionColumns,
		arg.Title,
		arg.ProjectPath,
		arg.ProjectName,
		arg.Model,
		arg.Provider,
		arg.Source,
		arg.PromptTokens,
		arg.CompletionTokens,
		arg.TotalTokens,
		arg.Cost,
		arg.DurationMs,
		arg.IsPublic,
		arg.PublicSlug,
		arg.SearchableText,
		arg.MessageCount,
		arg.EvalReady,
		arg.EvalTags,
		arg.EvalNotes,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanSession(row)
}

func (q *Queries) ListSessionsByUser(ctx context.Context, userID string) ([]Session, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT `+sessionColumns+`
FROM sessions
WHERE user_id = ?
ORDER BY updated_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}
