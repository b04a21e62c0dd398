package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type openAIEmbedder struct {
	client openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder builds the OpenAI-backed embedding capability. A missing
// API key returns ErrNotConfigured so callers can keep lexical search alive
// as the degraded path.
func NewOpenAIEmbedder(cfg OpenAIConfig) (Embedder, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := openai.EmbeddingModel(cfg.Model)
	if model == "" {
		model = openai.EmbeddingModelTextEmbedding3Small
	}

	return &openAIEmbedder{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	raw := resp.Data[0].Embedding
	vector := make([]float32, len(raw))
	for i, v := range raw {
		vector[i] = float32(v)
	}
	return vector, nil
}
