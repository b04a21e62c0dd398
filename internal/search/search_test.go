package search

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sessionvault/sessionvault/internal/db"
	"github.com/sessionvault/sessionvault/internal/embedding"
	"github.com/sessionvault/sessionvault/internal/message"
	"github.com/sessionvault/sessionvault/internal/session"
)

// fakeEmbedder maps known texts to fixed vectors so similarity rankings are
// deterministic. Unknown texts embed to the fallback.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

func setup(t *testing.T) (*sql.DB, session.Service, message.Service) {
	t.Helper()
	conn := db.SetupTestDB(t)
	return conn, session.NewService(conn), message.NewService(conn)
}

func ids(sessions []session.Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}

func TestSessionsLexical(t *testing.T) {
	t.Parallel()
	conn, sessions, _ := setup(t)
	ctx := context.Background()
	svc := NewService(conn, nil)

	match, err := sessions.Upsert(ctx, session.UpsertParams{
		UserID: "alice", ExternalID: "s1", Title: "Refactoring the websocket handler",
	})
	require.NoError(t, err)
	_, err = sessions.Upsert(ctx, session.UpsertParams{
		UserID: "alice", ExternalID: "s2", Title: "Shipping the billing page",
	})
	require.NoError(t, err)

	results, err := svc.Sessions(ctx, "alice", "websocket", 10)
	require.NoError(t, err)
	require.Equal(t, []string{match.ID}, ids(results))
}

func TestSessionsLexicalSeesMessageText(t *testing.T) {
	t.Parallel()
	conn, _, messages := setup(t)
	ctx := context.Background()
	svc := NewService(conn, nil)

	msg, err := messages.Upsert(ctx, message.UpsertParams{
		UserID:            "alice",
		SessionExternalID: "s1",
		ExternalID:        "m1",
		Parts: []message.IncomingPart{{
			Type:    "text",
			Content: []byte(`{"text":"the goroutine leak came from the ticker"}`),
		}},
	})
	require.NoError(t, err)

	// Part text flows into the session's searchable projection.
	results, err := svc.Sessions(ctx, "alice", "goroutine", 10)
	require.NoError(t, err)
	require.Equal(t, []string{msg.SessionID}, ids(results))
}

func TestSessionsEmptyQueryIsEmptyResult(t *testing.T) {
	t.Parallel()
	conn, sessions, _ := setup(t)
	ctx := context.Background()
	svc := NewService(conn, nil)

	_, err := sessions.Upsert(ctx, session.UpsertParams{UserID: "alice", ExternalID: "s1", Title: "anything"})
	require.NoError(t, err)

	results, err := svc.Sessions(ctx, "alice", "   ", 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestMessagesEmptyQueryIsError(t *testing.T) {
	t.Parallel()
	conn, _, _ := setup(t)
	svc := NewService(conn, nil)

	_, err := svc.Messages(context.Background(), "alice", "", MessagesOptions{})
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestMessagesSearchAndSessionFilter(t *testing.T) {
	t.Parallel()
	conn, _, messages := setup(t)
	ctx := context.Background()
	svc := NewService(conn, nil)

	first, err := messages.Upsert(ctx, message.UpsertParams{
		UserID: "alice", SessionExternalID: "s1", ExternalID: "m1",
		TextContent: "the deadlock is in the scheduler",
	})
	require.NoError(t, err)
	second, err := messages.Upsert(ctx, message.UpsertParams{
		UserID: "alice", SessionExternalID: "s2", ExternalID: "m2",
		TextContent: "another deadlock entirely",
	})
	require.NoError(t, err)

	all, err := svc.Messages(ctx, "alice", "deadlock", MessagesOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	scoped, err := svc.Messages(ctx, "alice", "deadlock", MessagesOptions{SessionID: first.SessionID})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, first.ID, scoped[0].ID)

	scoped, err = svc.Messages(ctx, "alice", "deadlock", MessagesOptions{SessionID: second.SessionID})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, second.ID, scoped[0].ID)
}

func TestTenantIsolation(t *testing.T) {
	t.Parallel()
	conn, sessions, messages := setup(t)
	ctx := context.Background()
	svc := NewService(conn, nil)

	_, err := sessions.Upsert(ctx, session.UpsertParams{
		UserID: "alice", ExternalID: "s1", Title: "secret refactor plans",
	})
	require.NoError(t, err)
	_, err = messages.Upsert(ctx, message.UpsertParams{
		UserID: "alice", SessionExternalID: "s1", ExternalID: "m1",
		TextContent: "secret implementation detail",
	})
	require.NoError(t, err)

	got, err := svc.Sessions(ctx, "bob", "secret", 10)
	require.NoError(t, err)
	require.Empty(t, got)

	msgs, err := svc.Messages(ctx, "bob", "secret", MessagesOptions{})
	require.NoError(t, err)
	require.Empty(t, msgs)

	_, err = svc.Sessions(ctx, "", "secret", 10)
	require.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestQuerySyntaxIsNeutralized(t *testing.T) {
	t.Parallel()
	conn, sessions, _ := setup(t)
	ctx := context.Background()
	svc := NewService(conn, nil)

	_, err := sessions.Upsert(ctx, session.UpsertParams{UserID: "alice", ExternalID: "s1", Title: "plain title"})
	require.NoError(t, err)

	// FTS5 operators and stray quotes in user input must not be a query error.
	for _, q := range []string{`"unbalanced`, `NEAR(a b)`, `title:plain AND`, `*`} {
		_, err := svc.Sessions(ctx, "alice", q, 10)
		require.NoError(t, err, "query %q", q)
	}
}

func TestSemanticRanksByCosine(t *testing.T) {
	t.Parallel()
	conn, _, messages := setup(t)
	ctx := context.Background()

	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"the query": {1, 0},
		},
		fallback: []float32{0, 1},
	}

	// Three sessions whose stored vectors are at decreasing similarity to
	// the query vector.
	vectors := map[string][]float32{
		"s-close": {0.9, 0.1},
		"s-mid":   {0.5, 0.5},
		"s-far":   {0.1, 0.9},
	}
	sessionIDs := make(map[string]string)
	ix := embedding.NewIndexer(conn, messages, embedder)
	q := db.New(conn)
	for ext, vec := range vectors {
		msg, err := messages.Upsert(ctx, message.UpsertParams{
			UserID: "alice", SessionExternalID: ext, ExternalID: ext + "-m1",
			TextContent: "content for " + ext,
		})
		require.NoError(t, err)
		sessionIDs[ext] = msg.SessionID
		require.NoError(t, ix.Index(ctx, "alice", msg.SessionID))
		// Overwrite the fake's fallback vector with the scripted one.
		require.NoError(t, q.UpsertSessionEmbedding(ctx, db.UpsertSessionEmbeddingParams{
			ID:          msg.SessionID + "-emb",
			SessionID:   msg.SessionID,
			UserID:      "alice",
			Embedding:   embedding.EncodeVector(vec),
			ContentHash: "scripted",
		}))
	}

	svc := NewService(conn, embedder)
	results, err := svc.Semantic(ctx, "alice", "the query", 10)
	require.NoError(t, err)
	require.Equal(t, []string{
		sessionIDs["s-close"],
		sessionIDs["s-mid"],
		sessionIDs["s-far"],
	}, ids(results))

	// Limit truncates after ranking.
	top, err := svc.Semantic(ctx, "alice", "the query", 1)
	require.NoError(t, err)
	require.Equal(t, []string{sessionIDs["s-close"]}, ids(top))
}

func TestSemanticUnconfigured(t *testing.T) {
	t.Parallel()
	conn, _, _ := setup(t)
	svc := NewService(conn, nil)

	_, err := svc.Semantic(context.Background(), "alice", "anything", 10)
	require.ErrorIs(t, err, embedding.ErrNotConfigured)
}

func TestSemanticSkipsOtherTenants(t *testing.T) {
	t.Parallel()
	conn, _, messages := setup(t)
	ctx := context.Background()

	embedder := &fakeEmbedder{fallback: []float32{1, 0}}
	ix := embedding.NewIndexer(conn, messages, embedder)

	msg, err := messages.Upsert(ctx, message.UpsertParams{
		UserID: "alice", SessionExternalID: "s1", ExternalID: "m1", TextContent: "alice's content",
	})
	require.NoError(t, err)
	require.NoError(t, ix.Index(ctx, "alice", msg.SessionID))

	svc := NewService(conn, embedder)
	results, err := svc.Semantic(ctx, "bob", "query", 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestHybridUnconfigured(t *testing.T) {
	t.Parallel()
	conn, sessions, _ := setup(t)
	ctx := context.Background()
	svc := NewService(conn, nil)

	_, err := sessions.Upsert(ctx, session.UpsertParams{
		UserID: "alice", ExternalID: "s1", Title: "terraform drift detection",
	})
	require.NoError(t, err)

	// Hybrid must surface the configuration error even though its lexical
	// leg alone could answer; callers choose the degraded path explicitly.
	_, err = svc.Hybrid(ctx, "alice", "terraform", 10, DefaultSemanticWeight)
	require.ErrorIs(t, err, embedding.ErrNotConfigured)
}

func TestHybridCombinesBothLegs(t *testing.T) {
	t.Parallel()
	conn, sessions, messages := setup(t)
	ctx := context.Background()

	embedder := &fakeEmbedder{fallback: []float32{1, 0}}
	ix := embedding.NewIndexer(conn, messages, embedder)

	// One session only lexical search can see, one only semantic can.
	lexOnly, err := sessions.Upsert(ctx, session.UpsertParams{
		UserID: "alice", ExternalID: "s-lex", Title: "terraform drift detection",
	})
	require.NoError(t, err)

	msg, err := messages.Upsert(ctx, message.UpsertParams{
		UserID: "alice", SessionExternalID: "s-sem", ExternalID: "m1",
		TextContent: "infrastructure state divergence",
	})
	require.NoError(t, err)
	require.NoError(t, ix.Index(ctx, "alice", msg.SessionID))

	svc := NewService(conn, embedder)
	results, err := svc.Hybrid(ctx, "alice", "terraform", 10, DefaultSemanticWeight)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{lexOnly.ID, msg.SessionID}, ids(results))
}
