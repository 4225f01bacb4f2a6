package encoder

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoreply/embeddings/internal/config"
)

func localConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Embedding.Provider = config.ProviderLocal
	cfg.Embedding.Local.ServerURL = url
	cfg.Embedding.Local.ServerType = config.ServerTypeTEI
	cfg.Embedding.Local.ModelName = "tei-test"
	return cfg
}

func TestFactory_CreateWrapsBackend(t *testing.T) {
	var requests atomic.Int32
	server := newTEIServer(t, &requests)
	defer server.Close()

	cfg := localConfig(server.URL)
	cfg.Encoder.MaxConcurrency = 4
	cfg.Encoder.Breaker.Enabled = true

	obs := &recordingObserver{}
	enc, err := NewFactory(cfg, obs).Create(context.Background())
	require.NoError(t, err)

	cached, ok := enc.(*Cached)
	require.True(t, ok, "cache is the outermost layer")
	instrumented, ok := cached.next.(*Instrumented)
	require.True(t, ok)
	limited, ok := instrumented.next.(*Limited)
	require.True(t, ok)
	_, ok = limited.next.(*Breaker)
	require.True(t, ok)

	assert.Equal(t, 2, enc.Dimensions())
	assert.Equal(t, "tei-test", enc.ModelName())

	_, err = enc.Encode(context.Background(), []string{"uno", "dos"})
	require.NoError(t, err)
	_, err = enc.Encode(context.Background(), []string{"dos", "tres"})
	require.NoError(t, err)

	assert.Equal(t, int32(3), requests.Load(), "probe plus two requests")
	assert.Equal(t, 2, obs.encodes)
	assert.Equal(t, 3, obs.texts, "only misses reach the backend")
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 3, obs.misses)
}

func TestFactory_CreateWithoutWrappers(t *testing.T) {
	var requests atomic.Int32
	server := newTEIServer(t, &requests)
	defer server.Close()

	cfg := localConfig(server.URL)
	cfg.Encoder.CacheSize = 0

	enc, err := NewFactory(cfg, nil).Create(context.Background())
	require.NoError(t, err)

	_, ok := enc.(*LocalEmbedder)
	assert.True(t, ok)
}

func TestFactory_DimensionPin(t *testing.T) {
	var requests atomic.Int32
	server := newTEIServer(t, &requests)
	defer server.Close()

	cfg := localConfig(server.URL)
	cfg.Embedding.Dimensions = 384

	_, err := NewFactory(cfg, nil).Create(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch: configured 384")
}

func TestFactory_UnsupportedProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Embedding.Provider = "word2vec"

	_, err := NewFactory(cfg, nil).Create(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported embedding provider")
}

func TestValidateConnection(t *testing.T) {
	assert.NoError(t, ValidateConnection(context.Background(), &fakeEncoder{}))

	err := ValidateConnection(context.Background(), &fakeEncoder{err: errors.New("boom")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create test embedding")
}

func TestInstrumented_ReportsErrors(t *testing.T) {
	obs := &recordingObserver{}
	enc := NewInstrumented(&fakeEncoder{err: errors.New("boom")}, obs)

	_, err := enc.Encode(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Equal(t, 1, obs.encodes)
	assert.Equal(t, 2, obs.texts)
	assert.Equal(t, 1, obs.errors)
}
