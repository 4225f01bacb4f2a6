package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"autoreply/embeddings/internal/config"
	"autoreply/embeddings/internal/log"
)

// LocalEmbedder implements the Encoder interface using a local embedding server
type LocalEmbedder struct {
	config     config.LocalConfig
	httpClient *http.Client
	dimensions int
}

// NewLocalEmbedder creates a new local embedder instance
func NewLocalEmbedder(ctx context.Context, cfg config.LocalConfig) (*LocalEmbedder, error) {
	embedder := &LocalEmbedder{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}

	log.InfoLogger.Printf("🔍 Auto-detecting embedding dimensions for local server at %s", cfg.ServerURL)
	dimensions, err := detectDimensions(ctx, embedder.Encode)
	if err != nil {
		return nil, fmt.Errorf("failed to detect embedding dimensions: %w", err)
	}
	embedder.dimensions = dimensions

	log.InfoLogger.Printf("🤖 Local embedder initialized with %d dimensions", dimensions)
	return embedder, nil
}

// Encode embeds texts using the local server. TEI and custom servers receive
// the whole batch in one request; Ollama's API takes one prompt per request.
func (e *LocalEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	var vectors [][]float32
	if e.config.ServerType == config.ServerTypeOllama {
		vectors = make([][]float32, 0, len(texts))
		for i, text := range texts {
			embedding, err := e.post(ctx, []string{text})
			if err != nil {
				return nil, fmt.Errorf("text %d: %w", i, err)
			}
			vectors = append(vectors, embedding...)
		}
	} else {
		var err error
		vectors, err = e.post(ctx, texts)
		if err != nil {
			return nil, err
		}
	}

	if err := checkVectors(vectors, len(texts), e.dimensions); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Dimensions returns the embedding dimensions
func (e *LocalEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the configured model name, or the server URL when unset
func (e *LocalEmbedder) ModelName() string {
	if e.config.ModelName != "" {
		return e.config.ModelName
	}
	return e.config.ServerURL
}

// post sends one embedding request and parses the server's response
func (e *LocalEmbedder) post(ctx context.Context, texts []string) ([][]float32, error) {
	requestBody, err := e.createRequestBody(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.getEmbedEndpoint(), bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request to local embedding server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("local embedding server returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	embeddings, err := e.parseResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	return embeddings, nil
}

// getEmbedEndpoint returns the embedding endpoint URL based on server type
func (e *LocalEmbedder) getEmbedEndpoint() string {
	baseURL := e.config.ServerURL

	switch e.config.ServerType {
	case config.ServerTypeOllama:
		return baseURL + "/api/embeddings"
	case config.ServerTypeCustom:
		return baseURL + "/embeddings"
	default:
		return baseURL + "/embed"
	}
}

// createRequestBody creates the HTTP request body based on server type
func (e *LocalEmbedder) createRequestBody(texts []string) ([]byte, error) {
	switch e.config.ServerType {
	case config.ServerTypeOllama:
		if len(texts) != 1 {
			return nil, fmt.Errorf("ollama only supports single text embedding")
		}
		return json.Marshal(map[string]interface{}{
			"model":  e.config.ModelName,
			"prompt": texts[0],
		})
	case config.ServerTypeCustom:
		request := map[string]interface{}{
			"input": texts,
		}
		if e.config.ModelName != "" {
			request["model"] = e.config.ModelName
		}
		return json.Marshal(request)
	default:
		return json.Marshal(map[string]interface{}{
			"inputs": texts,
		})
	}
}

// parseResponse parses the embedding response based on server type
func (e *LocalEmbedder) parseResponse(body io.Reader) ([][]float32, error) {
	switch e.config.ServerType {
	case config.ServerTypeOllama:
		var response struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(body).Decode(&response); err != nil {
			return nil, fmt.Errorf("failed to decode Ollama response: %w", err)
		}
		return [][]float32{response.Embedding}, nil
	case config.ServerTypeCustom:
		return parseCustomResponse(body)
	default:
		var embeddings [][]float32
		if err := json.NewDecoder(body).Decode(&embeddings); err != nil {
			return nil, fmt.Errorf("failed to decode TEI response: %w", err)
		}
		return embeddings, nil
	}
}

// parseCustomResponse parses custom server response (OpenAI-like format)
func parseCustomResponse(body io.Reader) ([][]float32, error) {
	var response struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     *int      `json:"index"`
		} `json:"data"`
		Embeddings [][]float32 `json:"embeddings"` // Alternative format
	}

	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode custom response: %w", err)
	}

	// Try OpenAI-like format first
	if len(response.Data) > 0 {
		embeddings := make([][]float32, len(response.Data))
		for i, item := range response.Data {
			pos := i
			if item.Index != nil {
				pos = *item.Index
			}
			if pos < 0 || pos >= len(embeddings) {
				return nil, fmt.Errorf("embedding index %d out of range", pos)
			}
			embeddings[pos] = item.Embedding
		}
		return embeddings, nil
	}

	// Try direct embeddings format
	if len(response.Embeddings) > 0 {
		return response.Embeddings, nil
	}

	return nil, fmt.Errorf("no embeddings found in custom response")
}
