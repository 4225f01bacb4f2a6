package encoder

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Limited bounds how many Encode calls run against the wrapped encoder at once.
// Callers beyond the limit wait until a slot frees up or their context ends.
type Limited struct {
	next Encoder
	sem  *semaphore.Weighted
}

// NewLimited allows at most n concurrent calls into next.
func NewLimited(next Encoder, n int) *Limited {
	return &Limited{next: next, sem: semaphore.NewWeighted(int64(n))}
}

func (l *Limited) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for encoder: %w", err)
	}
	defer l.sem.Release(1)

	return l.next.Encode(ctx, texts)
}

func (l *Limited) Dimensions() int   { return l.next.Dimensions() }
func (l *Limited) ModelName() string { return l.next.ModelName() }
