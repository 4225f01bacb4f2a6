package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"autoreply/embeddings/internal/similarity"
)

// StringList decodes either a JSON string or a JSON array of strings.
// A single string becomes a one-element list; "" and null become empty.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		if one == "" {
			*s = nil
		} else {
			*s = StringList{one}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("texts must be a string or a list of strings: %w", err)
	}
	*s = many
	return nil
}

// EmbedRequest is the body of POST /embed.
type EmbedRequest struct {
	Texts StringList `json:"texts"`
}

// EmbedResponse carries one vector per input text.
type EmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Dimension  int         `json:"dimension"`
}

// SimilarityRequest is the body of POST /similarity. A nil Threshold means DefaultThreshold.
type SimilarityRequest struct {
	Query      string                 `json:"query"`
	References []similarity.Reference `json:"references"`
	Threshold  *float64               `json:"threshold"`
}

type SimilarityResponse struct {
	Query        string             `json:"query"`
	Matches      []similarity.Match `json:"matches"`
	TotalChecked int                `json:"total_checked"`
	Threshold    float64            `json:"threshold"`
}

// BatchSimilarityRequest is the body of POST /batch-similarity.
type BatchSimilarityRequest struct {
	Queries    []string               `json:"queries"`
	References []similarity.Reference `json:"references"`
	Threshold  *float64               `json:"threshold"`
}

type QueryResult struct {
	Query   string             `json:"query"`
	Matches []similarity.Match `json:"matches"`
}

type BatchSimilarityResponse struct {
	Results []QueryResult `json:"results"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	Provider  string `json:"provider,omitempty"`
}
