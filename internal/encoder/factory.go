package encoder

import (
	"context"
	"fmt"

	"autoreply/embeddings/internal/cache"
	"autoreply/embeddings/internal/config"
	"autoreply/embeddings/internal/log"
)

// Factory creates encoders based on configuration
type Factory struct {
	config   *config.Config
	observer Observer
}

// NewFactory creates a new encoder factory. observer may be nil.
func NewFactory(cfg *config.Config, observer Observer) *Factory {
	return &Factory{
		config:   cfg,
		observer: observer,
	}
}

// Create builds the configured backend and wraps it with the configured
// breaker, concurrency limit, instrumentation and cache, innermost first.
func (f *Factory) Create(ctx context.Context) (Encoder, error) {
	backend, err := f.createBackend(ctx)
	if err != nil {
		return nil, err
	}

	if want := f.config.Embedding.Dimensions; want > 0 && backend.Dimensions() != want {
		return nil, fmt.Errorf("dimension mismatch: configured %d, model %s produces %d",
			want, backend.ModelName(), backend.Dimensions())
	}

	enc := backend
	if f.config.Encoder.Breaker.Enabled {
		log.InfoLogger.Printf("🛡️  Circuit breaker enabled (failure ratio %.2f, open for %s)",
			f.config.Encoder.Breaker.FailureRatio, f.config.Encoder.Breaker.Timeout)
		enc = NewBreaker(enc, f.config.Encoder.Breaker)
	}
	if n := f.config.Encoder.MaxConcurrency; n > 0 {
		log.InfoLogger.Printf("🚦 Limiting concurrent encoder calls to %d", n)
		enc = NewLimited(enc, n)
	}
	if f.observer != nil {
		enc = NewInstrumented(enc, f.observer)
	}
	if size := f.config.Encoder.CacheSize; size > 0 {
		embCache, err := cache.NewLRUCache(size)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding cache: %w", err)
		}
		log.InfoLogger.Printf("💾 Embedding cache enabled (%d entries)", size)
		enc = NewCached(enc, embCache, f.observer)
	}

	return enc, nil
}

func (f *Factory) createBackend(ctx context.Context) (Encoder, error) {
	switch f.config.Embedding.Provider {
	case config.ProviderOpenAI:
		enc, err := NewOpenAIEmbedder(ctx, f.config.Embedding.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI embedder: %w", err)
		}
		return enc, nil
	case config.ProviderLocal:
		log.InfoLogger.Printf("🏠 Initializing local embedder")
		log.InfoLogger.Printf("🔗 Server URL: %s", f.config.Embedding.Local.ServerURL)
		log.InfoLogger.Printf("🤖 Server Type: %s", f.config.Embedding.Local.ServerType)
		enc, err := NewLocalEmbedder(ctx, f.config.Embedding.Local)
		if err != nil {
			return nil, fmt.Errorf("failed to create local embedder: %w", err)
		}
		return enc, nil
	case config.ProviderHuggingFace:
		enc, err := NewHuggingFaceEmbedder(ctx, f.config.Embedding.HuggingFace)
		if err != nil {
			return nil, fmt.Errorf("failed to create HuggingFace embedder: %w", err)
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", f.config.Embedding.Provider)
	}
}

// ValidateConnection tests the encoder with a single embedding and checks its dimensions
func ValidateConnection(ctx context.Context, enc Encoder) error {
	log.InfoLogger.Printf("🔍 Validating encoder connection...")

	embedding, err := EncodeOne(ctx, enc, "Hola, buenos días")
	if err != nil {
		return fmt.Errorf("failed to create test embedding: %w", err)
	}

	if len(embedding) != enc.Dimensions() {
		return fmt.Errorf("dimension mismatch: expected %d, got %d", enc.Dimensions(), len(embedding))
	}

	log.InfoLogger.Printf("✅ Encoder connection validated successfully (%d dimensions)", len(embedding))
	return nil
}
