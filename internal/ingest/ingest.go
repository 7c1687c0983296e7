package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/shahidattar7777/pharma-doc-agent/internal/chunker"
	"github.com/shahidattar7777/pharma-doc-agent/internal/embedding"
	"github.com/shahidattar7777/pharma-doc-agent/internal/parser"
	"github.com/shahidattar7777/pharma-doc-agent/internal/store"
)

// DocumentError records a single document that failed to ingest. The batch
// keeps going; failures are aggregated into the report.
type DocumentError struct {
	DocumentName string
	Err          error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("failed to ingest %s: %v", e.DocumentName, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// Report summarizes one ingestion pass.
type Report struct {
	Documents int
	Pages     int
	Chunks    int
	Failures  []*DocumentError
}

// Ingester runs the parse → chunk → embed → upsert pass over a directory.
type Ingester struct {
	chunker  *chunker.Chunker
	embedder embeddings.Embedder
	store    store.Store
}

func New(c *chunker.Chunker, e embeddings.Embedder, s store.Store) *Ingester {
	return &Ingester{chunker: c, embedder: e, store: s}
}

// Run ingests every supported document directly under dir. A document that
// fails to parse, embed, or store is skipped and reported; the remainder of
// the batch continues. An empty directory is an error so a typo'd path is
// not mistaken for a successful no-op.
func (ing *Ingester) Run(ctx context.Context, dir string) (*Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read document directory: %v", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !parser.Supported(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no supported documents found in %s", dir)
	}

	log.Info().Int("documents", len(files)).Str("dir", dir).Msg("Starting ingestion")

	report := &Report{}
	for _, name := range files {
		if err := ing.ingestDocument(ctx, filepath.Join(dir, name), name, report); err != nil {
			docErr := &DocumentError{DocumentName: name, Err: err}
			log.Error().Err(docErr).Msg("Skipping document")
			report.Failures = append(report.Failures, docErr)
		}
	}

	log.Info().
		Int("documents", report.Documents).
		Int("pages", report.Pages).
		Int("chunks", report.Chunks).
		Int("failures", len(report.Failures)).
		Msg("Ingestion finished")
	return report, nil
}

func (ing *Ingester) ingestDocument(ctx context.Context, path, name string, report *Report) error {
	pages, err := parser.Parse(path)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		log.Warn().Str("document", name).Msg("No extractable text, skipping")
		return nil
	}

	chunks, err := ing.chunker.Chunk(name, pages)
	if err != nil {
		return err
	}

	embedded, err := embedding.EmbedChunks(ctx, ing.embedder, chunks)
	if err != nil {
		return err
	}

	if err := ing.store.Upsert(ctx, embedded); err != nil {
		return err
	}

	log.Info().Str("document", name).Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Ingested")
	report.Documents++
	report.Pages += len(pages)
	report.Chunks += len(chunks)
	return nil
}
