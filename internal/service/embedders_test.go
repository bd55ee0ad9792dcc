package service

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ahmednasr/issue-search/internal/cache"
)

func TestHashEmbedder_DeterministicAndNormalized(t *testing.T) {
	h, err := NewHashEmbedder(64)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := h.Embed(ctx, "How can I load a dataset offline?")
	require.NoError(t, err)
	b, err := h.Embed(ctx, "how can i LOAD a dataset, offline")
	require.NoError(t, err)
	assert.Equal(t, a, b, "case and punctuation do not change tokens")
	assert.Len(t, a, 64)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)

	empty, err := h.Embed(ctx, "")
	require.NoError(t, err)
	assert.Len(t, empty, 64)

	_, err = NewHashEmbedder(0)
	assert.Error(t, err)
	assert.Equal(t, "hash-64", h.Model())
}

func TestParsePredictions(t *testing.T) {
	pred, err := structpb.NewValue(map[string]interface{}{
		"embeddings": map[string]interface{}{
			"values": []interface{}{0.5, -1.0, 2.0},
		},
	})
	require.NoError(t, err)

	vecs, err := parsePredictions([]*structpb.Value{pred})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, -1, 2}}, vecs)

	_, err = parsePredictions(nil)
	assert.Error(t, err)

	empty, err := structpb.NewValue(map[string]interface{}{"embeddings": map[string]interface{}{}})
	require.NoError(t, err)
	_, err = parsePredictions([]*structpb.Value{empty})
	assert.Error(t, err)
}

func TestCachedEmbedder_OnlyEmbedsMisses(t *testing.T) {
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)

	inner := &mapEmbedder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
		"c": {1, 1},
	}}
	ce := NewCachedEmbedder(inner, c)
	defer ce.Close()
	ctx := context.Background()

	first, err := ce.EmbedBatch(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, first)

	second, err := ce.EmbedBatch(ctx, []string{"b", "c", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}, {1, 0}}, second)

	require.Len(t, inner.batches, 2)
	assert.Equal(t, []string{"c"}, inner.batches[1])

	third, err := ce.EmbedBatch(ctx, []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}}, third)
	assert.Len(t, inner.batches, 2, "full hit does not call the encoder")
}

// fakeWorker writes a shell script that stands in for the Python encoder:
// it ignores its arguments and answers every request line with reply.
func fakeWorker(t *testing.T, reply string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "python")
	script := "#!/bin/sh\nwhile read line; do echo '" + reply + "'; done\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestLocalEmbedder_Worker(t *testing.T) {
	bin := fakeWorker(t, `{"device":"cpu","embeddings":[[0.25,0.5,0.75]]}`)
	e, err := NewLocalEmbedder(LocalEmbedderOptions{PythonBin: bin, Model: "bert-base-uncased", Device: "mps"})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, "bert-base-uncased#cls", e.Model())

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.5, 0.75}, vec)
	assert.Equal(t, "cpu", e.Device(), "unavailable accelerator falls back to cpu")

	again, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, vec, again)
}

func TestLocalEmbedder_WorkerErrors(t *testing.T) {
	bin := fakeWorker(t, `{"error":"CUDA out of memory"}`)
	e, err := NewLocalEmbedder(LocalEmbedderOptions{PythonBin: bin, Model: "m"})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CUDA out of memory")

	_, err = e.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.Error(t, err, "one vector for two texts is rejected")
}

func TestNewLocalEmbedder_Options(t *testing.T) {
	_, err := NewLocalEmbedder(LocalEmbedderOptions{})
	assert.Error(t, err)

	_, err = NewLocalEmbedder(LocalEmbedderOptions{Model: "m", Pooling: "max"})
	assert.Error(t, err)

	e, err := NewLocalEmbedder(LocalEmbedderOptions{Model: "m", Pooling: "mean"})
	require.NoError(t, err)
	assert.Equal(t, "m#mean", e.Model())
}

func TestNewEmbedder(t *testing.T) {
	ctx := context.Background()

	e, err := NewEmbedder(ctx, EmbedderOptions{Provider: "hash", HashDimensions: 16})
	require.NoError(t, err)
	assert.IsType(t, &HashEmbedder{}, e)

	e, err = NewEmbedder(ctx, EmbedderOptions{
		Provider:       "hash",
		HashDimensions: 16,
		CachePath:      filepath.Join(t.TempDir(), "c.db"),
	})
	require.NoError(t, err)
	assert.IsType(t, &CachedEmbedder{}, e)
	assert.Equal(t, "hash-16", e.Model())
	require.NoError(t, e.Close())

	_, err = NewEmbedder(ctx, EmbedderOptions{Provider: "word2vec"})
	assert.Error(t, err)
}
