package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sessionvault/sessionvault/internal/app"
	"github.com/sessionvault/sessionvault/internal/db"
	"github.com/sessionvault/sessionvault/internal/message"
	"github.com/sessionvault/sessionvault/internal/session"
)

func setupIngest(t *testing.T) *app.App {
	t.Helper()
	conn := db.SetupTestDB(t)
	return &app.App{
		Sessions: session.NewService(conn),
		Messages: message.NewService(conn),
	}
}

func TestIngestStreamForwardsAllSessionFields(t *testing.T) {
	t.Parallel()
	a := setupIngest(t)
	ctx := context.Background()

	payload := `{"kind":"session","external_id":"s1","title":"Porting the scheduler","model":"gpt-4o","provider":"openai","prompt_tokens":120,"completion_tokens":30,"cost":0.05,"duration_ms":9000}
{"kind":"message","session_external_id":"s1","external_id":"m1","role":"user","text_content":"hello","parts":[{"type":"text","content":{"text":"hello"}}]}
`
	touched := make(map[string]bool)
	require.NoError(t, ingestStream(ctx, a, "alice", strings.NewReader(payload), touched))
	require.Len(t, touched, 1)

	all, err := a.Sessions.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, all, 1)

	sess := all[0]
	require.Equal(t, "Porting the scheduler", sess.Title)
	require.Equal(t, int64(120), sess.PromptTokens)
	require.Equal(t, int64(30), sess.CompletionTokens)
	require.Equal(t, int64(150), sess.TotalTokens)
	require.Equal(t, 0.05, sess.Cost)
	require.Equal(t, int64(9000), sess.DurationMs)

	msgs, err := a.Messages.List(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "hello", msgs[0].TextContent)
}

func TestIngestStreamRejectsBadLines(t *testing.T) {
	t.Parallel()
	a := setupIngest(t)
	ctx := context.Background()

	err := ingestStream(ctx, a, "alice", strings.NewReader(`{"kind":"widget"}`+"\n"), map[string]bool{})
	require.ErrorContains(t, err, "unknown kind")

	err = ingestStream(ctx, a, "alice", strings.NewReader("{not json\n"), map[string]bool{})
	require.Error(t, err)
}
