package db

import "context"

const embeddingColumns = `id, session_id, user_id, embedding, content_hash, created_at`

func scanEmbedding(row scanner) (SessionEmbedding, error) {
	var e SessionEmbedding
	err := row.Scan(&e.ID, &e.SessionID, &e.UserID, &e.Embedding, &e.ContentHash, &e.CreatedAt)
	return e, err
}

type UpsertSessionEmbeddingParams struct {
	ID          string
	SessionID   string
	UserID      string
	Embedding   []byte
	ContentHash string
	CreatedAt   int64
}

func (q *Queries) UpsertSessionEmbedding(ctx context.Context, arg UpsertSessionEmbeddingParams) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO session_embeddings (id, session_id, user_id, embedding, content_hash, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id) DO UPDATE SET
	user_id = excluded.user_id,
	embedding = excluded.embedding,
	content_hash = excluded.content_hash,
	created_at = excluded.created_at`,
		arg.ID, arg.SessionID, arg.UserID, arg.Embedding, arg.ContentHash, arg.CreatedAt)
	return err
}

func (q *Queries) GetSessionEmbedding(ctx context.Context, sessionID string) (SessionEmbedding, error) {
	row := q.db.QueryRowContext(ctx, `
SELECT `+embeddingColumns+`
FROM session_embeddings
WHERE session_id = ?`,
		sessionID)
	return scanEmbedding(row)
}

func (q *Queries) ListSessionEmbeddingsByUser(ctx context.Context, userID string) ([]SessionEmbedding, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT `+embeddingColumns+`
FROM session_embeddings
WHERE user_id = ?`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var embeddings []SessionEmbedding
	for rows.Next() {
		e, err := scanEmbedding(rows)
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, e)
	}
	return embeddings, rows.Err()
}

func (q *Queries) DeleteSessionEmbedding(ctx context.Context, sessionID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM session_embeddings WHERE session_id = ?`, sessionID)
	return err
}
