package similarity

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

const (
	// PreviewLength is how many characters of a reference text are echoed in a match.
	PreviewLength = 100
	scoreScale    = 10000 // 4 decimal places
)

// Reference is a candidate text identified by an opaque, caller-supplied ID.
type Reference struct {
	ID   json.RawMessage `json:"id"`
	Text string          `json:"text"`
}

// Match is a reference that scored at or above the threshold.
type Match struct {
	ID    json.RawMessage `json:"id"`
	Score float64         `json:"score"`
	Text  string          `json:"text"`
}

// Rank scores every reference vector against the query vector and returns the
// references whose score reaches threshold, best first. vectors must be
// index-aligned with refs. Equal scores keep their input order.
func Rank(query []float32, refs []Reference, vectors [][]float32, threshold float64) ([]Match, error) {
	if len(refs) != len(vectors) {
		return nil, fmt.Errorf("got %d vectors for %d references", len(vectors), len(refs))
	}

	matches := make([]Match, 0, len(refs))
	for i, ref := range refs {
		score, err := Cosine(query, vectors[i])
		if err != nil {
			return nil, fmt.Errorf("reference %d: %w", i, err)
		}
		if score < threshold {
			continue
		}
		rounded := Round(score)
		// Rounding down must not surface a score below the threshold.
		if rounded < threshold {
			continue
		}
		matches = append(matches, Match{
			ID:    ref.ID,
			Score: rounded,
			Text:  Preview(ref.Text),
		})
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return matches, nil
}

// Round rounds a score to 4 decimal places.
func Round(score float64) float64 {
	return math.Round(score*scoreScale) / scoreScale
}

// Preview returns the first PreviewLength characters of text.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength])
}
