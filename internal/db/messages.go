package db

import "context"

const messageColumns = `id, session_id, external_id, role, text_content, model,
	prompt_tokens, completion_tokens, duration_ms, created_at`

func scanMessage(row scanner) (Message, error) {
	var m Message
	err := row.Scan(
		&m.ID,
		&m.SessionID,
		&m.ExternalID,
		&m.Role,
		&m.TextContent,
		&m.Model,
		&m.PromptTokens,
		&m.CompletionTokens,
		&m.DurationMs,
		&m.CreatedAt,
	)
	return m, err
}

type CreateMessageParams struct {
	ID               string
	SessionID        string
	ExternalID       string
	Role             string
	TextContent      string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	DurationMs       int64
	CreatedAt        int64
}

func (q *Queries) CreateMessage(ctx context.Context, arg CreateMessageParams) (Message, error) {
	row := q.db.QueryRowContext(ctx, `
INSERT INTO messages (
	id, session_id, external_id, role, text_content, model,
	prompt_tokens, completion_tokens, duration_ms, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING `+messageColumns,
		arg.ID,
		arg.SessionID,
		arg.ExternalID,
		arg.Role,
		arg.TextContent,
		arg.Model,
		arg.PromptTokens,
		arg.CompletionTokens,
		arg.DurationMs,
		arg.CreatedAt,
	)
	return scanMessage(row)
}

func (q *Queries) GetMessage(ctx context.Context, id string) (Message, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	return scanMessage(row)
}

func (q *Queries) GetMessageByExternalID(ctx context.Context, externalID string) (Message, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE external_id = ?`, externalID)
	return scanMessage(row)
}

type UpdateMessageParams struct {
	ID               string
	TextContent      string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	DurationMs       int64
}

func (q *Queries) UpdateMessage(ctx context.Context, arg UpdateMessageParams) (Message, error) {
	row := q.db.QueryRowContext(ctx, `
UPDATE messages SET
	text_content = ?,
	model = ?,
	prompt_tokens = ?,
	completion_tokens = ?,
	duration_ms = ?
WHERE id = ?
RETURNING `+messageColumns,
		arg.TextContent,
		arg.Model,
		arg.PromptTokens,
		arg.CompletionTokens,
		arg.DurationMs,
		arg.ID,
	)
	return scanMessage(row)
}

func (q *Queries) ListMessagesBySession(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE session_id = ?
-- created_at is millisecond resolution; rowid breaks ties by insertion order.
ORDER BY created_at ASC, rowid ASC`,
		sessionID)
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

func (q *Queries) DeleteMessagesBySession(ctx context.Context, sessionID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID)
	return err
}

type CreatePartParams struct {
	ID        string
	MessageID string
	Type      string
	Content   string
	Position  int64
}

func (q *Queries) CreatePart(ctx context.Context, arg CreatePartParams) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO parts (id, message_id, type, content, position)
VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.MessageID, arg.Type, arg.Content, arg.Position)
	return err
}

func (q *Queries) ListPartsByMessage(ctx context.Context, messageID string) ([]Part, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, message_id, type, content, position
FROM parts
WHERE message_id = ?
ORDER BY position ASC`,
		messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []Part
	for rows.Next() {
		var p Part
		if err := rows.Scan(&p.ID, &p.MessageID, &p.Type, &p.Content, &p.Position); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (q *Queries) DeletePartsByMessage(ctx context.Context, messageID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM parts WHERE message_id = ?`, messageID)
	return err
}

func (q *Queries) DeletePartsBySession(ctx context.Context, sessionID string) error {
	_, err := q.db.ExecContext(ctx, `
DELETE FROM parts
WHERE message_id IN (SELECT id FROM messages WHERE session_id = ?)`,
		sessionID)
	return err
}
