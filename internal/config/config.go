// Package config loads runtime configuration from the environment, with an
// optional .env file for development setups.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const defaultEmbedModel = "text-embedding-3-small"

type Config struct {
	DataDir      string
	DatabasePath string
	LogFile      string
	Debug        bool

	OpenAIAPIKey  string
	OpenAIBaseURL string
	EmbedModel    string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first without overriding variables already set.
// A missing OpenAI API key is not an error here; semantic features report
// themselves unconfigured at call time instead.
func Load() (*Config, error) {
	// Ignore a missing .env; the environment alone is a valid setup.
	_ = godotenv.Load()

	dataDir := os.Getenv("SESSIONVAULT_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dataDir = filepath.Join(home, ".sessionvault")
	}

	cfg := &Config{
		DataDir:       dataDir,
		DatabasePath:  filepath.Join(dataDir, "sessionvault.db"),
		LogFile:       filepath.Join(dataDir, "sessionvault.log"),
		Debug:         os.Getenv("SESSIONVAULT_DEBUG") == "true",
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		EmbedModel:    os.Getenv("SESSIONVAULT_EMBED_MODEL"),
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = defaultEmbedModel
	}
	if path := os.Getenv("SESSIONVAULT_DB_PATH"); path != "" {
		cfg.DatabasePath = path
	}
	return cfg, nil
}
