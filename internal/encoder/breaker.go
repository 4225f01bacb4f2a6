package encoder

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"

	"autoreply/embeddings/internal/config"
	"autoreply/embeddings/internal/log"
)

// Breaker fails fast while the wrapped encoder keeps erroring, instead of
// letting every request wait on a backend that is down. It never retries.
type Breaker struct {
	next Encoder
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next with a circuit breaker configured by cfg.
func NewBreaker(next Encoder, cfg config.BreakerConfig) *Breaker {
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        "encoder:" + next.ModelName(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.InfoLogger.Printf("⚡ Circuit breaker %s state change: %s -> %s", name, from, to)
		},
		// A client hanging up says nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrEmptyInput)
		},
	}

	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Encode(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("encoder %s unavailable: %w", b.next.ModelName(), err)
		}
		return nil, err
	}
	return result.([][]float32), nil
}

func (b *Breaker) Dimensions() int   { return b.next.Dimensions() }
func (b *Breaker) ModelName() string { return b.next.ModelName() }

// State reports the breaker state ("closed", "half-open" or "open").
func (b *Breaker) State() string {
	return b.cb.State().String()
}
