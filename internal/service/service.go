// Package service implements the embedding and matching operations behind
// the HTTP API. Operations are stateless and return either a payload or a
// typed *Error; mapping to status codes happens at the transport layer.
package service

import (
	"context"
	"fmt"

	"autoreply/embeddings/internal/encoder"
	"autoreply/embeddings/internal/log"
	"autoreply/embeddings/internal/similarity"
)

// DefaultThreshold is used when a request does not set one.
const DefaultThreshold = 0.7

// Service answers embed and similarity requests with a shared encoder.
type Service struct {
	encoder  encoder.Encoder
	provider string
}

// New creates a Service around an already-initialized encoder.
func New(enc encoder.Encoder, provider string) *Service {
	return &Service{encoder: enc, provider: provider}
}

// Health reports that the service is up and which model it serves.
func (s *Service) Health() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Model:     s.encoder.ModelName(),
		Dimension: s.encoder.Dimensions(),
		Provider:  s.provider,
	}
}

// Embed encodes all texts in one batched call.
func (s *Service) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	if len(req.Texts) == 0 {
		return nil, BadRequest("No texts provided")
	}

	vectors, err := s.encoder.Encode(ctx, req.Texts)
	if err != nil {
		log.ErrorLogger.Printf("Error generating embeddings: %v", err)
		return nil, Internal(err)
	}

	return &EmbedResponse{
		Embeddings: vectors,
		Dimension:  dimension(vectors, s.encoder),
	}, nil
}

// Similarity ranks references against a single query.
func (s *Service) Similarity(ctx context.Context, req SimilarityRequest) (*SimilarityResponse, error) {
	if req.Query == "" {
		return nil, BadRequest("No query provided")
	}
	threshold := thresholdOf(req.Threshold)

	resp := &SimilarityResponse{
		Query:        req.Query,
		Matches:      []similarity.Match{},
		TotalChecked: len(req.References),
		Threshold:    threshold,
	}
	if len(req.References) == 0 {
		return resp, nil
	}

	queryVector, err := encoder.EncodeOne(ctx, s.encoder, req.Query)
	if err != nil {
		log.ErrorLogger.Printf("Error calculating similarity: %v", err)
		return nil, Internal(err)
	}
	refVectors, err := s.encoder.Encode(ctx, texts(req.References))
	if err != nil {
		log.ErrorLogger.Printf("Error calculating similarity: %v", err)
		return nil, Internal(err)
	}

	matches, err := similarity.Rank(queryVector, req.References, refVectors, threshold)
	if err != nil {
		log.ErrorLogger.Printf("Error calculating similarity: %v", err)
		return nil, Internal(err)
	}
	resp.Matches = matches

	log.DebugLogger.Printf("Similarity: %d of %d references matched at threshold %.2f", len(matches), len(req.References), threshold)
	return resp, nil
}

// BatchSimilarity ranks references against several queries using exactly
// two encoder calls, one for the queries and one for the references.
func (s *Service) BatchSimilarity(ctx context.Context, req BatchSimilarityRequest) (*BatchSimilarityResponse, error) {
	if len(req.Queries) == 0 {
		return nil, BadRequest("No queries provided")
	}
	for i, q := range req.Queries {
		if q == "" {
			return nil, BadRequest("Empty query at index %d", i)
		}
	}
	threshold := thresholdOf(req.Threshold)

	results := make([]QueryResult, len(req.Queries))
	for i, q := range req.Queries {
		results[i] = QueryResult{Query: q, Matches: []similarity.Match{}}
	}
	if len(req.References) == 0 {
		return &BatchSimilarityResponse{Results: results}, nil
	}

	queryVectors, err := s.encoder.Encode(ctx, req.Queries)
	if err != nil {
		log.ErrorLogger.Printf("Error in batch similarity: %v", err)
		return nil, Internal(err)
	}
	refVectors, err := s.encoder.Encode(ctx, texts(req.References))
	if err != nil {
		log.ErrorLogger.Printf("Error in batch similarity: %v", err)
		return nil, Internal(err)
	}

	for i := range results {
		matches, err := similarity.Rank(queryVectors[i], req.References, refVectors, threshold)
		if err != nil {
			log.ErrorLogger.Printf("Error in batch similarity: %v", err)
			return nil, Internal(fmt.Errorf("query %d: %w", i, err))
		}
		results[i].Matches = matches
	}

	return &BatchSimilarityResponse{Results: results}, nil
}

func thresholdOf(t *float64) float64 {
	if t == nil {
		return DefaultThreshold
	}
	return *t
}

func texts(refs []similarity.Reference) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.Text
	}
	return out
}

// dimension prefers the length of the returned vectors over the encoder's
// advertised dimension.
func dimension(vectors [][]float32, enc encoder.Encoder) int {
	if len(vectors) > 0 {
		return len(vectors[0])
	}
	return enc.Dimensions()
}
