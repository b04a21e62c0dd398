package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sessionvault/sessionvault/internal/app"
	"github.com/sessionvault/sessionvault/internal/message"
	"github.com/sessionvault/sessionvault/internal/session"
)

// payload is one line of an ingest file: a kind tag plus the fields of either
// upsert. Unknown kinds fail the line, not the file.
type payload struct {
	Kind string `json:"kind"`

	// session fields
	ExternalID  string  `json:"external_id"`
	Title       string  `json:"title"`
	ProjectPath string  `json:"project_path"`
	ProjectName string  `json:"project_name"`
	Model       string  `json:"model"`
	Provider    string  `json:"provider"`
	Source      string  `json:"source"`
	Cost        float64 `json:"cost"`

	// message fields
	SessionExternalID string                 `json:"session_external_id"`
	Role              string                 `json:"role"`
	TextContent       string                 `json:"text_content"`
	PromptTokens      int64                  `json:"prompt_tokens"`
	CompletionTokens  int64                  `json:"completion_tokens"`
	DurationMs        int64                  `json:"duration_ms"`
	Parts             []message.IncomingPart `json:"parts"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Upsert session and message payloads from JSON-lines files",
	Long: `Ingest reads JSON-lines files (or stdin when no file is given) where
each line is {"kind": "session"|"message", ...} and upserts each payload.
Deliveries may repeat and arrive out of order. After ingestion every touched
session is re-embedded when an embedding provider is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		touched := make(map[string]bool)
		if len(args) == 0 {
			if err := ingestStream(cmd.Context(), a, user, os.Stdin, touched); err != nil {
				return err
			}
		}
		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			err = ingestStream(cmd.Context(), a, user, f, touched)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}

		for sessionID := range touched {
			if err := a.Indexer.Index(cmd.Context(), user, sessionID); err != nil {
				slog.Warn("failed to index session", "session_id", sessionID, "error", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ingested into %d session(s)\n", len(touched))
		return nil
	},
}

func ingestStream(ctx context.Context, a *app.App, user string, r io.Reader, touched map[string]bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var p payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		switch p.Kind {
		case "session":
			sess, err := a.Sessions.Upsert(ctx, session.UpsertParams{
				UserID:           user,
				ExternalID:       p.ExternalID,
				Title:            p.Title,
				ProjectPath:      p.ProjectPath,
				ProjectName:      p.ProjectName,
				Model:            p.Model,
				Provider:         p.Provider,
				Source:           p.Source,
				PromptTokens:     p.PromptTokens,
				CompletionTokens: p.CompletionTokens,
				Cost:             p.Cost,
				DurationMs:       p.DurationMs,
			})
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			touched[sess.ID] = true

		case "message":
			msg, err := a.Messages.Upsert(ctx, message.UpsertParams{
				UserID:            user,
				SessionExternalID: p.SessionExternalID,
				ExternalID:        p.ExternalID,
				Role:              message.Role(p.Role),
				TextContent:       p.TextContent,
				Model:             p.Model,
				PromptTokens:      p.PromptTokens,
				CompletionTokens:  p.CompletionTokens,
				DurationMs:        p.DurationMs,
				Source:            p.Source,
				Parts:             p.Parts,
			})
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			touched[msg.SessionID] = true

		default:
			return fmt.Errorf("line %d: unknown kind %q", line, p.Kind)
		}
	}
	return scanner.Err()
}
