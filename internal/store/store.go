package store

import (
	"context"
	"fmt"

	"github.com/shahidattar7777/pharma-doc-agent/internal/config"
	"github.com/shahidattar7777/pharma-doc-agent/internal/models"
)

// Store persists chunk embeddings and answers nearest-neighbor queries.
// Both backends rank by descending cosine similarity and break score ties
// by insertion order (earlier chunk wins). Query returns fewer than k
// results only when fewer than k chunks exist; an empty store yields an
// empty result, not an error.
type Store interface {
	Upsert(ctx context.Context, chunks []models.EmbeddedChunk) error
	Query(ctx context.Context, embedding []float32, k int) (models.RetrievalResult, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Close() error
}

// Open builds the configured backend. The embedding model name is recorded
// alongside the index (collection metadata for chromem, an index_metadata
// row for Postgres) so an index is never silently reused with vectors from
// a different model.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case "chromem", "":
		return NewChromemStore(cfg.Store.Path, cfg.Store.Collection, cfg.EmbedLLM.Model, false)
	case "postgres":
		return NewPostgresStore(&cfg.Database, cfg.EmbedLLM.Model)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}
