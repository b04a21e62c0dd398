package embedding

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sessionvault/sessionvault/internal/db"
	"github.com/sessionvault/sessionvault/internal/message"
	"github.com/sessionvault/sessionvault/internal/session"
)

// fakeEmbedder records calls and returns a fixed vector.
type fakeEmbedder struct {
	calls  int
	vector []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, nil
}

func setup(t *testing.T) (*sql.DB, session.Service, message.Service) {
	t.Helper()
	conn := db.SetupTestDB(t)
	return conn, session.NewService(conn), message.NewService(conn)
}

func TestBuildText(t *testing.T) {
	t.Parallel()

	sess := session.Session{Title: "Debugging the cache"}
	messages := []message.Message{
		{TextContent: "why is the cache stale"},
		{Parts: []message.Part{
			message.TextPart{Text: "let me look"},
			message.ToolCallPart{Name: "grep"},
			message.TextPart{Text: "found it"},
		}},
		{}, // blank messages are skipped
		{TextContent: "fixed"},
	}

	got := BuildText(sess, messages)
	require.Equal(t, "Debugging the cache\n\nwhy is the cache stale\nlet me look found it\nfixed", got)
}

func TestBuildTextEmpty(t *testing.T) {
	t.Parallel()
	require.Equal(t, "", BuildText(session.Session{}, nil))
	require.Equal(t, "only title", BuildText(session.Session{Title: "only title"}, nil))
}

func TestIndexStoresVectorOnce(t *testing.T) {
	t.Parallel()
	conn, _, messages := setup(t)
	ctx := context.Background()

	msg, err := messages.Upsert(ctx, message.UpsertParams{
		UserID:            "alice",
		SessionExternalID: "s1",
		ExternalID:        "m1",
		TextContent:       "some content worth embedding",
	})
	require.NoError(t, err)

	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	ix := NewIndexer(conn, messages, embedder)

	require.NoError(t, ix.Index(ctx, "alice", msg.SessionID))
	require.Equal(t, 1, embedder.calls)

	rec, err := db.New(conn).GetSessionEmbedding(ctx, msg.SessionID)
	require.NoError(t, err)
	require.Equal(t, "alice", rec.UserID)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, DecodeVector(rec.Embedding))
	require.NotEmpty(t, rec.ContentHash)

	// Unchanged content hashes the same; the provider is not called again.
	require.NoError(t, ix.Index(ctx, "alice", msg.SessionID))
	require.Equal(t, 1, embedder.calls)

	// New content invalidates the hash and replaces the vector in place.
	_, err = messages.Upsert(ctx, message.UpsertParams{
		UserID:            "alice",
		SessionExternalID: "s1",
		ExternalID:        "m2",
		TextContent:       "a later exchange",
	})
	require.NoError(t, err)
	require.NoError(t, ix.Index(ctx, "alice", msg.SessionID))
	require.Equal(t, 2, embedder.calls)

	all, err := db.New(conn).ListSessionEmbeddingsByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestIndexEmptySessionIsNoOp(t *testing.T) {
	t.Parallel()
	conn, sessions, messages := setup(t)
	ctx := context.Background()

	sess, err := sessions.Upsert(ctx, session.UpsertParams{UserID: "alice", ExternalID: "s1"})
	require.NoError(t, err)

	embedder := &fakeEmbedder{vector: []float32{1}}
	ix := NewIndexer(conn, messages, embedder)

	require.NoError(t, ix.Index(ctx, "alice", sess.ID))
	require.Zero(t, embedder.calls)

	_, err = db.New(conn).GetSessionEmbedding(ctx, sess.ID)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestIndexErrors(t *testing.T) {
	t.Parallel()
	conn, sessions, messages := setup(t)
	ctx := context.Background()

	sess, err := sessions.Upsert(ctx, session.UpsertParams{UserID: "alice", ExternalID: "s1", Title: "mine"})
	require.NoError(t, err)

	ix := NewIndexer(conn, messages, &fakeEmbedder{vector: []float32{1}})
	require.ErrorIs(t, ix.Index(ctx, "", sess.ID), session.ErrUnauthenticated)
	require.ErrorIs(t, ix.Index(ctx, "bob", sess.ID), session.ErrNotFound)
	require.ErrorIs(t, ix.Index(ctx, "alice", "no-such-session"), session.ErrNotFound)

	unconfigured := NewIndexer(conn, messages, nil)
	require.ErrorIs(t, unconfigured.Index(ctx, "alice", sess.ID), ErrNotConfigured)
}

func TestVectorRoundTrip(t *testing.T) {
	t.Parallel()

	vec := []float32{0, -1.5, 3.25, 1e-7}
	require.Equal(t, vec, DecodeVector(EncodeVector(vec)))
	require.Empty(t, DecodeVector(nil))
}

func TestCosine(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	require.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	require.Zero(t, Cosine(nil, nil))
	require.Zero(t, Cosine([]float32{1}, []float32{1, 2}))
	require.Zero(t, Cosine([]float32{0, 0}, []float32{1, 2}))
}
