// Package app wires the storage, ingestion, indexing, and retrieval services
// into one container the CLI (and tests) can stand up with a single call.
package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/sessionvault/sessionvault/internal/config"
	"github.com/sessionvault/sessionvault/internal/db"
	"github.com/sessionvault/sessionvault/internal/embedding"
	"github.com/sessionvault/sessionvault/internal/log"
	"github.com/sessionvault/sessionvault/internal/message"
	"github.com/sessionvault/sessionvault/internal/search"
	"github.com/sessionvault/sessionvault/internal/session"
)

type App struct {
	Sessions session.Service
	Messages message.Service
	Indexer  *embedding.Indexer
	Search   *search.Service

	conn *sql.DB
}

// New connects (and migrates) the database and wires every service. A missing
// embedding credential is tolerated: the indexer and the semantic search leg
// stay unconfigured while ingestion and lexical search work normally.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	conn, err := db.Connect(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.EmbedModel,
	})
	if errors.Is(err, embedding.ErrNotConfigured) {
		slog.Warn("no embedding provider configured; semantic search disabled",
			"api_key", log.MaskAPIKey(cfg.OpenAIAPIKey))
		embedder = nil
	} else if err != nil {
		conn.Close()
		return nil, err
	}

	sessions := session.NewService(conn)
	messages := message.NewService(conn)

	return &App{
		Sessions: sessions,
		Messages: messages,
		Indexer:  embedding.NewIndexer(conn, messages, embedder),
		Search:   search.NewService(conn, embedder),
		conn:     conn,
	}, nil
}

func (a *App) Shutdown() error {
	return a.conn.Close()
}
