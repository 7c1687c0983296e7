package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahidattar7777/pharma-doc-agent/internal/embedding"
	"github.com/shahidattar7777/pharma-doc-agent/internal/models"
	"github.com/shahidattar7777/pharma-doc-agent/internal/store"
	"github.com/shahidattar7777/pharma-doc-agent/internal/testutil"
)

func newMemoryStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewChromemStore("", "retriever_test", "fake-model", true)
	require.NoError(t, err)
	return s
}

func TestRetrieveFromEmptyStore(t *testing.T) {
	r := New(testutil.NewFakeEmbedder(), newMemoryStore(t))

	result, err := r.Retrieve(context.Background(), "What adverse events were reported?", 4)
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestRetrieveReturnsMostSimilarChunk(t *testing.T) {
	ctx := context.Background()
	embedder := testutil.NewFakeEmbedder()
	s := newMemoryStore(t)

	chunks := []models.Chunk{
		{Text: "Adverse events included MACE in 3% of patients", DocumentName: "review.pdf", PageNumber: 1, ChunkIndex: 0},
		{Text: "The manufacturing facility passed inspection", DocumentName: "review.pdf", PageNumber: 2, ChunkIndex: 1},
	}
	embedded, err := embedding.EmbedChunks(ctx, embedder, chunks)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, embedded))

	result, err := New(embedder, s).Retrieve(ctx, "What adverse events were reported?", 1)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 1, result[0].PageNumber)
	assert.Contains(t, result[0].Text, "MACE")
}

type unreachableStore struct{}

func (unreachableStore) Upsert(context.Context, []models.EmbeddedChunk) error { return nil }
func (unreachableStore) Query(context.Context, []float32, int) (models.RetrievalResult, error) {
	return nil, errors.New("store unreachable")
}
func (unreachableStore) Count(context.Context) (int, error) { return 0, nil }
func (unreachableStore) Reset(context.Context) error        { return nil }
func (unreachableStore) Close() error                       { return nil }

func TestRetrieveWrapsStoreFailure(t *testing.T) {
	r := New(testutil.NewFakeEmbedder(), unreachableStore{})

	_, err := r.Retrieve(context.Background(), "any question", 4)
	require.Error(t, err)

	var retErr *RetrievalError
	require.ErrorAs(t, err, &retErr)
	assert.Equal(t, "any question", retErr.Query)
}
