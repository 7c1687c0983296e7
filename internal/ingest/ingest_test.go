package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahidattar7777/pharma-doc-agent/internal/chunker"
	"github.com/shahidattar7777/pharma-doc-agent/internal/store"
	"github.com/shahidattar7777/pharma-doc-agent/internal/testutil"
)

func newIngester(t *testing.T) (*Ingester, store.Store) {
	t.Helper()
	s, err := store.NewChromemStore("", "ingest_test", "fake-model", true)
	require.NoError(t, err)
	return New(chunker.New(200, 50), testutil.NewFakeEmbedder(), s), s
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRunIngestsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "safety.txt", "Adverse events included MACE in 3% of patients.")
	writeFile(t, dir, "efficacy.txt", "The primary endpoint was met with statistical significance.")
	writeFile(t, dir, "ignored.zip", "not a document")

	ing, s := newIngester(t)
	report, err := ing.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, 2, report.Pages)
	assert.Empty(t, report.Failures)

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.Chunks, count)
}

func TestRunSkipsFailedDocumentAndContinues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.pdf", "this is not a pdf")
	writeFile(t, dir, "safety.txt", "Adverse events included MACE in 3% of patients.")

	ing, s := newIngester(t)
	report, err := ing.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Documents)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "broken.pdf", report.Failures[0].DocumentName)

	// the good document still made it into the store
	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}

func TestRunEmptyDirectoryIsAnError(t *testing.T) {
	ing, _ := newIngester(t)
	_, err := ing.Run(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no supported documents")
}

func TestRunMissingDirectoryIsAnError(t *testing.T) {
	ing, _ := newIngester(t)
	_, err := ing.Run(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

func TestRunIsIdempotentAcrossReingest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "safety.txt", "Adverse events included MACE in 3% of patients.")

	ing, s := newIngester(t)
	ctx := context.Background()

	_, err := ing.Run(ctx, dir)
	require.NoError(t, err)
	first, err := s.Count(ctx)
	require.NoError(t, err)

	// chunk IDs are stable, so re-ingesting replaces instead of duplicating
	_, err = ing.Run(ctx, dir)
	require.NoError(t, err)
	second, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
