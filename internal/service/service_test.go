package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoreply/embeddings/internal/log"
	"autoreply/embeddings/internal/similarity"
)

func TestMain(m *testing.M) {
	log.Discard()
	os.Exit(m.Run())
}

// keywordEncoder maps each text onto fixed axes by keyword, so similarity
// between texts is predictable.
type keywordEncoder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

var axes = []string{"hola", "precio", "envio"}

func (k *keywordEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	k.mu.Lock()
	k.calls = append(k.calls, append([]string(nil), texts...))
	k.mu.Unlock()
	if k.err != nil {
		return nil, k.err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, len(axes))
		lower := strings.ToLower(text)
		for j, axis := range axes {
			if strings.Contains(lower, axis) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func (k *keywordEncoder) Dimensions() int   { return len(axes) }
func (k *keywordEncoder) ModelName() string { return "keyword" }

func refs(texts ...string) []similarity.Reference {
	out := make([]similarity.Reference, len(texts))
	for i, text := range texts {
		out[i] = similarity.Reference{ID: json.RawMessage(`"r` + string(rune('0'+i)) + `"`), Text: text}
	}
	return out
}

func ptr(f float64) *float64 { return &f }

func TestHealth(t *testing.T) {
	svc := New(&keywordEncoder{}, "huggingface")

	h := svc.Health()
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "keyword", h.Model)
	assert.Equal(t, 3, h.Dimension)
	assert.Equal(t, "huggingface", h.Provider)
}

func TestEmbed(t *testing.T) {
	enc := &keywordEncoder{}
	svc := New(enc, "")

	resp, err := svc.Embed(context.Background(), EmbedRequest{Texts: StringList{"hola", "precio?"}})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0, 0}, {0, 1, 0}}, resp.Embeddings)
	assert.Equal(t, 3, resp.Dimension)
	assert.Len(t, enc.calls, 1, "one batched call")
}

func TestEmbed_NoTexts(t *testing.T) {
	enc := &keywordEncoder{}
	svc := New(enc, "")

	_, err := svc.Embed(context.Background(), EmbedRequest{})
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindBadRequest, svcErr.Kind)
	assert.Equal(t, "No texts provided", svcErr.Message)
	assert.Empty(t, enc.calls)
}

func TestEmbed_EncoderFailure(t *testing.T) {
	cause := errors.New("model exploded")
	svc := New(&keywordEncoder{err: cause}, "")

	_, err := svc.Embed(context.Background(), EmbedRequest{Texts: StringList{"x"}})
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindInternal, svcErr.Kind)
	assert.Equal(t, "model exploded", svcErr.Message)
	assert.ErrorIs(t, err, cause)
}

func TestSimilarity(t *testing.T) {
	enc := &keywordEncoder{}
	svc := New(enc, "")

	resp, err := svc.Similarity(context.Background(), SimilarityRequest{
		Query:      "hola buenos dias",
		References: refs("Hola! En que te ayudo?", "Nuestro precio es 10", "Hola, el precio es 10"),
	})
	require.NoError(t, err)

	assert.Equal(t, "hola buenos dias", resp.Query)
	assert.Equal(t, 3, resp.TotalChecked)
	assert.Equal(t, DefaultThreshold, resp.Threshold)
	require.Len(t, resp.Matches, 2)
	assert.JSONEq(t, `"r0"`, string(resp.Matches[0].ID))
	assert.Equal(t, 1.0, resp.Matches[0].Score)
	assert.Equal(t, "Hola! En que te ayudo?", resp.Matches[0].Text)
	assert.JSONEq(t, `"r2"`, string(resp.Matches[1].ID))
	assert.Equal(t, 0.7071, resp.Matches[1].Score)
	assert.Len(t, enc.calls, 2, "query and references are encoded separately")
}

func TestSimilarity_ExplicitZeroThreshold(t *testing.T) {
	svc := New(&keywordEncoder{}, "")

	resp, err := svc.Similarity(context.Background(), SimilarityRequest{
		Query:      "hola",
		References: refs("adios", "hola precio", "hola"),
		Threshold:  ptr(0),
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, resp.Threshold)
	require.Len(t, resp.Matches, 3)
	assert.Equal(t, []float64{1, 0.7071, 0}, []float64{resp.Matches[0].Score, resp.Matches[1].Score, resp.Matches[2].Score})
	assert.JSONEq(t, `"r2"`, string(resp.Matches[0].ID))
	assert.JSONEq(t, `"r0"`, string(resp.Matches[2].ID), "zero-norm reference scores 0")
}

func TestSimilarity_NoQuery(t *testing.T) {
	svc := New(&keywordEncoder{}, "")

	_, err := svc.Similarity(context.Background(), SimilarityRequest{References: refs("hola")})
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindBadRequest, svcErr.Kind)
	assert.Equal(t, "No query provided", svcErr.Message)
}

func TestSimilarity_NoReferences(t *testing.T) {
	enc := &keywordEncoder{}
	svc := New(enc, "")

	resp, err := svc.Similarity(context.Background(), SimilarityRequest{Query: "hola", Threshold: ptr(0.5)})
	require.NoError(t, err)

	assert.NotNil(t, resp.Matches)
	assert.Empty(t, resp.Matches)
	assert.Equal(t, 0, resp.TotalChecked)
	assert.Equal(t, 0.5, resp.Threshold)
	assert.Empty(t, enc.calls)
}

func TestSimilarity_EncoderFailure(t *testing.T) {
	svc := New(&keywordEncoder{err: errors.New("timeout")}, "")

	_, err := svc.Similarity(context.Background(), SimilarityRequest{Query: "hola", References: refs("hola")})
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindInternal, svcErr.Kind)
}

func TestBatchSimilarity(t *testing.T) {
	enc := &keywordEncoder{}
	svc := New(enc, "")

	resp, err := svc.BatchSimilarity(context.Background(), BatchSimilarityRequest{
		Queries:    []string{"cual es el precio", "hola", "gracias"},
		References: refs("precio: 10", "hola!", "envio gratis"),
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	assert.Equal(t, "cual es el precio", resp.Results[0].Query)
	require.Len(t, resp.Results[0].Matches, 1)
	assert.JSONEq(t, `"r0"`, string(resp.Results[0].Matches[0].ID))

	require.Len(t, resp.Results[1].Matches, 1)
	assert.JSONEq(t, `"r1"`, string(resp.Results[1].Matches[0].ID))

	assert.NotNil(t, resp.Results[2].Matches)
	assert.Empty(t, resp.Results[2].Matches)

	assert.Equal(t, [][]string{
		{"cual es el precio", "hola", "gracias"},
		{"precio: 10", "hola!", "envio gratis"},
	}, enc.calls, "exactly two batched calls")
}

func TestBatchSimilarity_NoReferences(t *testing.T) {
	enc := &keywordEncoder{}
	svc := New(enc, "")

	resp, err := svc.BatchSimilarity(context.Background(), BatchSimilarityRequest{Queries: []string{"a", "b"}})
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	for i, q := range []string{"a", "b"} {
		assert.Equal(t, q, resp.Results[i].Query)
		assert.NotNil(t, resp.Results[i].Matches)
		assert.Empty(t, resp.Results[i].Matches)
	}
	assert.Empty(t, enc.calls)
}

func TestBatchSimilarity_NoQueries(t *testing.T) {
	svc := New(&keywordEncoder{}, "")

	_, err := svc.BatchSimilarity(context.Background(), BatchSimilarityRequest{References: refs("hola")})
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindBadRequest, svcErr.Kind)
	assert.Equal(t, "No queries provided", svcErr.Message)
}

func TestBatchSimilarity_EmptyQueryElement(t *testing.T) {
	enc := &keywordEncoder{}
	svc := New(enc, "")

	_, err := svc.BatchSimilarity(context.Background(), BatchSimilarityRequest{
		Queries:    []string{"hola", ""},
		References: refs("hola"),
	})
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindBadRequest, svcErr.Kind)
	assert.Equal(t, "Empty query at index 1", svcErr.Message)
	assert.Empty(t, enc.calls)
}

func TestStringList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    StringList
		wantErr bool
	}{
		{name: "list", input: `{"texts":["a","b"]}`, want: StringList{"a", "b"}},
		{name: "single string", input: `{"texts":"hola"}`, want: StringList{"hola"}},
		{name: "empty string", input: `{"texts":""}`, want: nil},
		{name: "null", input: `{"texts":null}`, want: nil},
		{name: "missing", input: `{}`, want: nil},
		{name: "empty list", input: `{"texts":[]}`, want: StringList{}},
		{name: "number", input: `{"texts":42}`, wantErr: true},
		{name: "mixed list", input: `{"texts":["a",1]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req EmbedRequest
			err := json.Unmarshal([]byte(tt.input), &req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Texts)
		})
	}
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "No query provided", BadRequest("No query provided").Error())
	assert.Equal(t, "boom", Internal(errors.New("boom")).Error())
	assert.Equal(t, "internal", KindInternal.String())
	assert.Equal(t, "bad_request", KindBadRequest.String())
}
