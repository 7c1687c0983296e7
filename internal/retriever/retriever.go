package retriever

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/shahidattar7777/pharma-doc-agent/internal/models"
	"github.com/shahidattar7777/pharma-doc-agent/internal/store"
)

// RetrievalError means the question could not be matched against the index:
// either the embedding call or the vector store failed. It fails the whole
// query; there is no silent fallback.
type RetrievalError struct {
	Query string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed for query %q: %v", e.Query, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Retriever embeds a question with the same model used at ingest time and
// asks the store for the nearest chunks.
type Retriever struct {
	embedder embeddings.Embedder
	store    store.Store
}

func New(embedder embeddings.Embedder, s store.Store) *Retriever {
	return &Retriever{embedder: embedder, store: s}
}

// Retrieve returns up to k chunks ranked by similarity. An empty store is
// not an error: the result is empty and downstream handles it via the
// no-source prompt path.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) (models.RetrievalResult, error) {
	queryEmbedding, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, &RetrievalError{Query: question, Err: fmt.Errorf("failed to embed question: %v", err)}
	}

	result, err := r.store.Query(ctx, queryEmbedding, k)
	if err != nil {
		return nil, &RetrievalError{Query: question, Err: err}
	}

	log.Debug().Int("k", k).Int("retrieved", len(result)).Msg("Retrieved chunks")
	return result, nil
}
