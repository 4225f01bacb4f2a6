package encoder

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"autoreply/embeddings/internal/config"
	"autoreply/embeddings/internal/log"
)

// OpenAIEmbedder embeds texts through the OpenAI embeddings API or any
// server exposing the same /embeddings contract.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIEmbedder creates an OpenAI embedder and detects its dimensions.
func NewOpenAIEmbedder(ctx context.Context, cfg config.OpenAIConfig) (*OpenAIEmbedder, error) {
	log.InfoLogger.Printf("🌐 Initializing OpenAI embedder with model: %s", cfg.Model)

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		log.InfoLogger.Printf("🔗 Using OpenAI-compatible endpoint: %s", cfg.BaseURL)
		clientConfig.BaseURL = cfg.BaseURL
	}

	embedder := &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  openai.EmbeddingModel(cfg.Model),
	}

	dimensions, err := detectDimensions(ctx, embedder.Encode)
	if err != nil {
		return nil, fmt.Errorf("failed to detect embedding dimensions: %w", err)
	}
	embedder.dimensions = dimensions

	log.InfoLogger.Printf("✅ OpenAI embedder initialized successfully with %d dimensions", dimensions)
	return embedder, nil
}

// Encode embeds all texts in a single API request.
func (e *OpenAIEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get embeddings from OpenAI model %s: %w", e.model, err)
	}

	// The API reports each vector's input position; do not rely on response order.
	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range for %d texts", item.Index, len(texts))
		}
		vectors[item.Index] = item.Embedding
	}

	if err := checkVectors(vectors, len(texts), e.dimensions); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Dimensions returns the detected embedding dimensions
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the configured embedding model
func (e *OpenAIEmbedder) ModelName() string {
	return string(e.model)
}
