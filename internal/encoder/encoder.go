// Package encoder turns text into embedding vectors. Backends talk to a
// pretrained model (HuggingFace inference, OpenAI-compatible APIs or a local
// embedding server); decorators add caching, concurrency limits, circuit
// breaking and instrumentation on top of any backend.
package encoder

import (
	"context"
	"errors"
	"fmt"
)

// Encoder is the interface for creating vector embeddings from text.
// Implementations must return exactly one vector per input, in input order,
// and every vector must have Dimensions() elements.
type Encoder interface {
	// Encode embeds all texts, batching requests where the backend allows it.
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the length of the vectors this encoder produces.
	Dimensions() int
	// ModelName identifies the model serving the embeddings.
	ModelName() string
}

// ErrEmptyInput is returned when Encode is called without texts.
var ErrEmptyInput = errors.New("texts cannot be empty")

// EncodeOne embeds a single text.
func EncodeOne(ctx context.Context, enc Encoder, text string) ([]float32, error) {
	vectors, err := enc.Encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// checkVectors verifies a backend response holds n vectors of length dim.
// A dim of 0 skips the length check, which is needed while dimensions are still being detected.
func checkVectors(vectors [][]float32, n, dim int) error {
	if len(vectors) != n {
		return fmt.Errorf("expected %d embeddings, got %d", n, len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("received empty embedding for text %d", i)
		}
		if dim > 0 && len(v) != dim {
			return fmt.Errorf("dimension mismatch for text %d: expected %d, got %d", i, dim, len(v))
		}
	}
	return nil
}

// detectDimensions embeds a probe text and reports the vector length.
func detectDimensions(ctx context.Context, encode func(ctx context.Context, texts []string) ([][]float32, error)) (int, error) {
	vectors, err := encode(ctx, []string{"Hello world"})
	if err != nil {
		return 0, fmt.Errorf("failed to make test embedding request: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return 0, fmt.Errorf("received empty embedding during dimension detection")
	}
	return len(vectors[0]), nil
}
