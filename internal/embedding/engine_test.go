package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)

	_, err = CosineSimilarity([]float32{1}, []float32{1, 2})
	assert.Error(t, err)
}

func TestFindTopK(t *testing.T) {
	corpus := [][]float32{
		{0, 1},
		{1, 0},
		{1, 1},
		{1, 0}, // duplicate of index 1
		{1, 2, 3},
	}

	results, err := FindTopK([]float32{1, 0}, corpus, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 1, results[0].Index, "ties keep corpus order")
	assert.Equal(t, 3, results[1].Index)
	assert.Equal(t, 2, results[2].Index)

	results, err = FindTopK([]float32{1, 0}, corpus, 10)
	require.NoError(t, err)
	assert.Len(t, results, 4, "mismatched dimensions are skipped")

	_, err = FindTopK([]float32{1, 0}, corpus, 0)
	assert.Error(t, err)
}

type fakeEngine struct{ queried atomic.Bool }

func (f *fakeEngine) Embed(context.Context, string) ([]float32, error) { return []float32{1}, nil }
func (f *fakeEngine) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, nil
}
func (f *fakeEngine) Dimensions() int { return 1 }
func (f *fakeEngine) Name() string    { return "fake" }

type fakeQueryEngine struct{ fakeEngine }

func (f *fakeQueryEngine) EmbedQuery(context.Context, string) ([]float32, error) {
	f.queried.Store(true)
	return []float32{2}, nil
}

func TestEmbedQueryPrefersQueryMode(t *testing.T) {
	plain := &fakeEngine{}
	v, err := EmbedQuery(context.Background(), plain, "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)

	asym := &fakeQueryEngine{}
	v, err = EmbedQuery(context.Background(), asym, "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, v)
	assert.True(t, asym.queried.Load())
}

func TestNewEngineRejectsUnknownProvider(t *testing.T) {
	_, err := NewEngine(context.Background(), Config{Provider: "faiss"})
	assert.Error(t, err)
}

func TestNewGenAIEngineValidation(t *testing.T) {
	_, err := NewGenAIEngine(context.Background(), "", "", "")
	assert.Error(t, err)

	_, err = NewGenAIEngine(context.Background(), "key", "", "NOT_A_TASK")
	assert.Error(t, err)
}

func TestOllamaEngine(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/embed":
			calls.Add(1)
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "embeddinggemma", req.Model)
			resp := ollamaEmbedResponse{}
			for _, in := range req.Input {
				if strings.Contains(in, "boom") {
					http.Error(w, "model not loaded", http.StatusInternalServerError)
					return
				}
				resp.Embeddings = append(resp.Embeddings, []float32{float32(len(in)), 1, 0})
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	engine, err := NewOllamaEngine(srv.URL+"/", "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ollama:embeddinggemma", engine.Name())
	assert.Equal(t, 0, engine.Dimensions())
	require.NoError(t, engine.HealthCheck(context.Background()))

	vecs, err := engine.EmbedBatch(context.Background(), []string{"a", "abc", "abcde"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1, 0}, {3, 1, 0}, {5, 1, 0}}, vecs)
	assert.Equal(t, int32(1), calls.Load(), "a batch is one request")
	assert.Equal(t, 3, engine.Dimensions())

	vec, err := engine.Embed(context.Background(), "ab")
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 1, 0}, vec)

	_, err = engine.Embed(context.Background(), "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestOllamaEngineRejectsBadResponses(t *testing.T) {
	responses := map[string]string{
		"count":    `{"embeddings":[[1,2]]}`,
		"ragged":   `{"embeddings":[[1,2],[1]]}`,
		"empty":    `{"embeddings":[[],[]]}`,
		"not json": `oops`,
	}
	for name, body := range responses {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			engine, err := NewOllamaEngine(srv.URL, "m", time.Second)
			require.NoError(t, err)
			_, err = engine.EmbedBatch(context.Background(), []string{"a", "b"})
			assert.Error(t, err)
			assert.Equal(t, 0, engine.Dimensions())
		})
	}
}

func TestOllamaEngineDetectsDimensionChange(t *testing.T) {
	var dims atomic.Int32
	dims.Store(2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{make([]float32, dims.Load())}})
	}))
	defer srv.Close()

	engine, err := NewOllamaEngine(srv.URL, "m", time.Second)
	require.NoError(t, err)
	_, err = engine.Embed(context.Background(), "x")
	require.NoError(t, err)

	dims.Store(4)
	_, err = engine.Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "changed dimensions")
	assert.Equal(t, 2, engine.Dimensions())
}
