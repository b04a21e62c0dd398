package db

import "context"

type SearchSessionsParams struct {
	UserID string
	Query  string
	Limit  int64
}

// SearchSessions returns the owner's sessions matching the FTS5 query in
// native relevance order.
func (q *Queries) SearchSessions(ctx context.Context, arg SearchSessionsParams) ([]Session, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT s.id, s.user_id, s.external_id, s.title, s.project_path, s.project_name,
	s.model, s.provider, s.source, s.prompt_tokens, s.completion_tokens, s.total_tokens,
	s.cost, s.duration_ms, s.is_public, s.public_slug, s.searchable_text, s.message_count,
	s.eval_ready, s.eval_tags, s.eval_notes, s.created_at, s.updated_at
FROM sessions_fts fts
JOIN sessions s ON s.rowid = fts.rowid
WHERE sessions_fts MATCH ? AND s.user_id = ?
ORDER BY fts.rank
LIMIT ?`,
		arg.Query, arg.UserID, arg.Limit)
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

type SearchMessagesParams struct {
	UserID    string
	Query     string
	SessionID string // empty matches all of the owner's sessions
	Limit     int64
	Offset    int64
}

// SearchMessages returns the owner's messages matching the FTS5 query. Owner
// scope is enforced through the session join.
func (q *Queries) SearchMessages(ctx context.Context, arg SearchMessagesParams) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT m.id, m.session_id, m.external_id, m.role, m.text_content, m.model,
	m.prompt_tokens, m.completion_tokens, m.duration_ms, m.created_at
FROM messages_fts fts
JOIN messages m ON m.rowid = fts.rowid
JOIN sessions s ON s.id = m.session_id
WHERE messages_fts MATCH ? AND s.user_id = ? AND (? = '' OR m.session_id = ?)
ORDER BY fts.rank
LIMIT ? OFFSET ?`,
		arg.Query, arg.UserID, arg.SessionID, arg.SessionID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
