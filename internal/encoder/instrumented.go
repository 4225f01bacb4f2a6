package encoder

import (
	"context"
	"time"
)

// Observer receives encoder telemetry. internal/metrics implements it with Prometheus collectors.
type Observer interface {
	ObserveEncode(model string, texts int, elapsed time.Duration, err error)
	ObserveCache(hits, misses int)
}

// Instrumented reports the latency, batch size and outcome of every Encode call.
type Instrumented struct {
	next     Encoder
	observer Observer
}

func NewInstrumented(next Encoder, observer Observer) *Instrumented {
	return &Instrumented{next: next, observer: observer}
}

func (i *Instrumented) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := i.next.Encode(ctx, texts)
	i.observer.ObserveEncode(i.next.ModelName(), len(texts), time.Since(start), err)
	return vectors, err
}

func (i *Instrumented) Dimensions() int   { return i.next.Dimensions() }
func (i *Instrumented) ModelName() string { return i.next.ModelName() }
