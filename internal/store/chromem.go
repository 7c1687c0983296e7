package store

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/shahidattar7777/pharma-doc-agent/internal/models"
)

const compress = false

// metadata key recording which embedding model populated the collection
const modelMetadataKey = "embedding_model"

// ChromemStore keeps chunk vectors in a local chromem-go collection.
// The on-disk layout is owned entirely by chromem-go.
type ChromemStore struct {
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	modelName      string
	seq            int
}

// NewChromemStore opens (or creates) the collection. inMemory is used by
// tests; the CLI always runs persistent.
func NewChromemStore(dbPath, collectionName, modelName string, inMemory bool) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	s := &ChromemStore{
		db:             db,
		collectionName: collectionName,
		modelName:      modelName,
	}
	if err := s.openCollection(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ChromemStore) openCollection() error {
	c, err := s.db.GetOrCreateCollection(s.collectionName, map[string]string{
		modelMetadataKey: s.modelName,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %v", err)
	}
	s.collection = c
	// new chunks get sequence numbers after everything already stored;
	// replaced chunks keep theirs, so existing numbers are 0..count-1
	s.seq = c.Count()
	return nil
}

// nextSeq returns the insertion sequence for a chunk. A chunk replacing an
// existing one keeps that chunk's number so score ties keep resolving the
// same way after re-ingestion, as the Postgres backend does.
func (s *ChromemStore) nextSeq(ctx context.Context, id string) int {
	if doc, err := s.collection.GetByID(ctx, id); err == nil {
		if n, err := strconv.Atoi(doc.Metadata["seq"]); err == nil {
			if n >= s.seq {
				s.seq = n + 1
			}
			return n
		}
	}
	n := s.seq
	s.seq++
	return n
}

// Upsert stores or replaces chunks, keyed by (document name, chunk index).
func (s *ChromemStore) Upsert(ctx context.Context, chunks []models.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	for i, ec := range chunks {
		docs[i] = chromem.Document{
			ID:        ec.ID(),
			Content:   ec.Text,
			Embedding: ec.Embedding,
			Metadata: map[string]string{
				"source": ec.DocumentName,
				"page":   strconv.Itoa(ec.PageNumber),
				"chunk":  strconv.Itoa(ec.ChunkIndex),
				"seq":    strconv.Itoa(s.nextSeq(ctx, ec.ID())),
			},
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Query returns the k most similar chunks by cosine similarity. chromem
// rejects nResults above the collection size, so k is clamped first.
func (s *ChromemStore) Query(ctx context.Context, embedding []float32, k int) (models.RetrievalResult, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	type scoredSeq struct {
		sc  models.ScoredChunk
		seq int
	}
	scored := make([]scoredSeq, 0, len(results))
	for _, res := range results {
		page, _ := strconv.Atoi(res.Metadata["page"])
		chunkIdx, _ := strconv.Atoi(res.Metadata["chunk"])
		seq, _ := strconv.Atoi(res.Metadata["seq"])
		scored = append(scored, scoredSeq{
			sc: models.ScoredChunk{
				Chunk: models.Chunk{
					Text:         res.Content,
					DocumentName: res.Metadata["source"],
					PageNumber:   page,
					ChunkIndex:   chunkIdx,
				},
				Score: res.Similarity,
			},
			seq: seq,
		})
	}

	// chromem sorts by similarity but leaves tie order unspecified; pin
	// ties to insertion order.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].sc.Score != scored[j].sc.Score {
			return scored[i].sc.Score > scored[j].sc.Score
		}
		return scored[i].seq < scored[j].seq
	})

	retrieved := make(models.RetrievalResult, len(scored))
	for i, sc := range scored {
		retrieved[i] = sc.sc
	}
	return retrieved, nil
}

func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Reset drops and recreates the collection.
func (s *ChromemStore) Reset(ctx context.Context) error {
	if err := s.db.DeleteCollection(s.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return s.openCollection()
}

func (s *ChromemStore) Close() error { return nil }
