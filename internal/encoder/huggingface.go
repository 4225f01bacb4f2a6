package encoder

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/go-huggingface"

	"autoreply/embeddings/internal/config"
	"autoreply/embeddings/internal/log"
)

// extractFunc runs one feature-extraction call and returns one pooled vector per input.
type extractFunc func(ctx context.Context, inputs []string) ([][]float32, error)

// HuggingFaceEmbedder implements the Encoder interface using the HuggingFace inference API
type HuggingFaceEmbedder struct {
	config     config.HuggingFaceConfig
	extract    extractFunc
	dimensions int
}

// NewHuggingFaceEmbedder creates a new HuggingFace embedder instance and detects its dimensions
func NewHuggingFaceEmbedder(ctx context.Context, cfg config.HuggingFaceConfig) (*HuggingFaceEmbedder, error) {
	log.InfoLogger.Printf("🤗 Initializing HuggingFace embedder with model: %s", cfg.ModelID)

	if cfg.Token == "" {
		log.InfoLogger.Printf("⚠️  No HuggingFace API token found. Some models may require authentication.")
		log.InfoLogger.Printf("💡 Set HUGGINGFACEHUB_API_TOKEN or HF_TOKEN environment variable if needed.")
	} else {
		log.InfoLogger.Printf("🔑 Using HuggingFace API token for authentication")
	}

	client := huggingface.NewInferenceClient(cfg.Token)
	client.SetModel(cfg.ModelID)

	extract := func(ctx context.Context, inputs []string) ([][]float32, error) {
		resp, err := client.FeatureExtractionWithAutomaticReduction(ctx, &huggingface.FeatureExtractionRequest{
			Inputs: inputs,
			Options: huggingface.Options{
				WaitForModel: huggingface.PTR(true),
				UseCache:     huggingface.PTR(true),
			},
		})
		if err != nil {
			return nil, err
		}
		return resp, nil
	}

	return newHuggingFaceEmbedder(ctx, cfg, extract)
}

func newHuggingFaceEmbedder(ctx context.Context, cfg config.HuggingFaceConfig, extract extractFunc) (*HuggingFaceEmbedder, error) {
	embedder := &HuggingFaceEmbedder{
		config:  cfg,
		extract: extract,
	}

	dimensions, err := detectDimensions(ctx, embedder.Encode)
	if err != nil {
		return nil, fmt.Errorf("failed to detect embedding dimensions: %w", err)
	}
	embedder.dimensions = dimensions

	log.InfoLogger.Printf("✅ HuggingFace embedder initialized successfully with %d dimensions", dimensions)
	return embedder, nil
}

// Encode embeds texts in batches of BatchSize, one API request per batch
func (e *HuggingFaceEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	inputs := make([]string, len(texts))
	for i, text := range texts {
		inputs[i] = e.truncate(text)
	}

	batchSize := e.config.BatchSize
	if batchSize <= 0 {
		batchSize = len(inputs)
	}

	vectors := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += batchSize {
		end := min(start+batchSize, len(inputs))
		batch := inputs[start:end]

		log.DebugLogger.Printf("🔄 Requesting %d embeddings from %s", len(batch), e.config.ModelID)

		resp, err := e.extract(ctx, batch)
		if err != nil {
			if isAuthError(err) {
				return nil, fmt.Errorf("authentication failed for model %s. This model may require a HuggingFace API token. Please set the HUGGINGFACEHUB_API_TOKEN environment variable. Original error: %w", e.config.ModelID, err)
			}
			return nil, fmt.Errorf("failed to get embeddings from HuggingFace model %s: %w", e.config.ModelID, err)
		}
		if err := checkVectors(resp, len(batch), e.dimensions); err != nil {
			return nil, err
		}
		vectors = append(vectors, resp...)
	}

	return vectors, nil
}

// Dimensions returns the embedding dimensions
func (e *HuggingFaceEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the HuggingFace model ID
func (e *HuggingFaceEmbedder) ModelName() string {
	return e.config.ModelID
}

// truncate cuts text to MaxLength characters.
func (e *HuggingFaceEmbedder) truncate(text string) string {
	if e.config.MaxLength <= 0 || len(text) <= e.config.MaxLength {
		return text
	}
	runes := []rune(text)
	if len(runes) <= e.config.MaxLength {
		return text
	}
	log.DebugLogger.Printf("⚠️  Truncating text from %d to %d characters", len(runes), e.config.MaxLength)
	return string(runes[:e.config.MaxLength])
}

func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "invalid username or password") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "authentication")
}
