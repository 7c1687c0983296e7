package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahidattar7777/pharma-doc-agent/internal/models"
	"github.com/shahidattar7777/pharma-doc-agent/internal/prompt"
	"github.com/shahidattar7777/pharma-doc-agent/internal/testutil"
)

func retrieval() models.RetrievalResult {
	return models.RetrievalResult{
		{
			Chunk: models.Chunk{Text: "Adverse events included MACE in 3% of patients.", DocumentName: "review.pdf", PageNumber: 1},
			Score: 0.9,
		},
		{
			Chunk: models.Chunk{Text: "The REMS program requires prescriber training.", DocumentName: "rems.pdf", PageNumber: 7},
			Score: 0.6,
		},
	}
}

func TestGenerateMapsCitationsToRetrieval(t *testing.T) {
	model := &testutil.FakeModel{
		Response: "MACE was reported in 3% of patients [Source: review.pdf, Page 1]. " +
			"Prescriber training is required [Source: rems.pdf, Page 7].",
	}
	g := New(model)

	result := retrieval()
	answer, err := g.Generate(context.Background(), prompt.Build("q", result), result)
	require.NoError(t, err)

	assert.Equal(t, []models.Citation{
		{DocumentName: "review.pdf", PageNumber: 1},
		{DocumentName: "rems.pdf", PageNumber: 7},
	}, answer.Citations)
}

func TestGenerateDropsFabricatedCitations(t *testing.T) {
	model := &testutil.FakeModel{
		Response: "Per the review [Source: review.pdf, Page 1] and the label [Source: invented.pdf, Page 99].",
	}
	g := New(model)

	result := retrieval()
	answer, err := g.Generate(context.Background(), prompt.Build("q", result), result)
	require.NoError(t, err)

	// the fabricated pair never appeared in the retrieval
	assert.Equal(t, []models.Citation{{DocumentName: "review.pdf", PageNumber: 1}}, answer.Citations)
}

func TestGenerateDeduplicatesCitations(t *testing.T) {
	model := &testutil.FakeModel{
		Response: "First claim [Source: review.pdf, Page 1]. Second claim [Source: review.pdf, Page 1].",
	}
	g := New(model)

	result := retrieval()
	answer, err := g.Generate(context.Background(), prompt.Build("q", result), result)
	require.NoError(t, err)
	assert.Len(t, answer.Citations, 1)
}

func TestGenerateFallsBackToRetrievedSources(t *testing.T) {
	model := &testutil.FakeModel{Response: "An answer without any citation markers."}
	g := New(model)

	result := retrieval()
	answer, err := g.Generate(context.Background(), prompt.Build("q", result), result)
	require.NoError(t, err)

	assert.Equal(t, []models.Citation{
		{DocumentName: "review.pdf", PageNumber: 1},
		{DocumentName: "rems.pdf", PageNumber: 7},
	}, answer.Citations)
}

func TestGenerateEmptyRetrievalHasNoCitations(t *testing.T) {
	model := &testutil.FakeModel{Response: "No relevant source material was found in the document index."}
	g := New(model)

	answer, err := g.Generate(context.Background(), prompt.Build("q", nil), nil)
	require.NoError(t, err)
	assert.Empty(t, answer.Citations)
}

func TestGenerateRetriesOnceOnFailure(t *testing.T) {
	model := &testutil.FakeModel{
		Response:              "Recovered [Source: review.pdf, Page 1].",
		Err:                   errors.New("connection reset"),
		FailuresBeforeSuccess: 1,
	}
	g := New(model)

	result := retrieval()
	answer, err := g.Generate(context.Background(), prompt.Build("q", result), result)
	require.NoError(t, err)
	assert.Equal(t, 2, model.Calls)
	assert.Contains(t, answer.Text, "Recovered")
}

func TestGenerateReturnsGenerationError(t *testing.T) {
	cause := errors.New("rate limited")
	model := &testutil.FakeModel{Err: cause, FailuresBeforeSuccess: 10}
	g := New(model)

	result := retrieval()
	_, err := g.Generate(context.Background(), prompt.Build("q", result), result)
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, cause)
	// one original attempt, one retry, no more
	assert.Equal(t, 2, model.Calls)
}

func TestCitationPatternIsCaseInsensitive(t *testing.T) {
	model := &testutil.FakeModel{Response: "claim [source: review.pdf, page 1]"}
	g := New(model)

	result := retrieval()
	answer, err := g.Generate(context.Background(), prompt.Build("q", result), result)
	require.NoError(t, err)
	assert.Equal(t, []models.Citation{{DocumentName: "review.pdf", PageNumber: 1}}, answer.Citations)
}
