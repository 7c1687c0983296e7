package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahidattar7777/pharma-doc-agent/internal/models"
)

func TestChunkEmptyInput(t *testing.T) {
	c := New(100, 20)

	chunks, err := c.Chunk("empty.pdf", nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = c.Chunk("blank.pdf", []models.Page{{Number: 1, Text: "   \n\t "}})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkShortPageIsSingleChunk(t *testing.T) {
	c := New(1000, 200)

	chunks, err := c.Chunk("short.pdf", []models.Page{{Number: 3, Text: "A short safety summary."}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short.pdf", chunks[0].DocumentName)
	assert.Equal(t, 3, chunks[0].PageNumber)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Contains(t, chunks[0].Text, "safety summary")
}

func TestChunkPreservesAllText(t *testing.T) {
	var page strings.Builder
	for i := 0; i < 40; i++ {
		page.WriteString(fmt.Sprintf("Sentence number %d describes an adverse event observed during the trial. ", i))
	}

	c := New(200, 50)
	chunks, err := c.Chunk("review.pdf", []models.Page{{Number: 1, Text: page.String()}})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	// re-joining chunk texts reconstructs a superset of the page text:
	// every sentence survives, overlap regions may repeat
	joined := strings.Join(collectTexts(chunks), " ")
	for i := 0; i < 40; i++ {
		assert.Contains(t, joined, fmt.Sprintf("Sentence number %d", i))
	}

	// separators at chunk boundaries must survive too: all 40 sentence
	// terminators are still present, and no non-whitespace character of
	// the page went missing
	assert.GreaterOrEqual(t, strings.Count(joined, "."), 40)
	assert.GreaterOrEqual(t, nonSpaceLen(joined), nonSpaceLen(page.String()))
}

func TestChunkKeepsSentenceBoundaries(t *testing.T) {
	sentence := "The applicant submitted additional cardiovascular outcome data. "
	page := strings.Repeat(sentence, 30)

	c := New(120, 30)
	chunks, err := c.Chunk("review.pdf", []models.Page{{Number: 1, Text: page}})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	joined := strings.Join(collectTexts(chunks), " ")
	assert.GreaterOrEqual(t, strings.Count(joined, "."), 30)
}

func TestChunkNeverCrossesPageBoundary(t *testing.T) {
	pages := []models.Page{
		{Number: 1, Text: strings.Repeat("Efficacy results from the pivotal trial. ", 20)},
		{Number: 2, Text: strings.Repeat("Manufacturing site inspection findings. ", 20)},
	}

	c := New(150, 30)
	chunks, err := c.Chunk("review.pdf", pages)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	sawPage2 := false
	for _, chunk := range chunks {
		switch chunk.PageNumber {
		case 1:
			assert.False(t, sawPage2, "page 1 chunk after page 2 chunk")
			assert.NotContains(t, chunk.Text, "Manufacturing")
		case 2:
			sawPage2 = true
			assert.NotContains(t, chunk.Text, "Efficacy")
		default:
			t.Fatalf("unexpected page number %d", chunk.PageNumber)
		}
	}
	assert.True(t, sawPage2)
}

func TestChunkIndexIsGlobalAndIncreasing(t *testing.T) {
	pages := []models.Page{
		{Number: 1, Text: strings.Repeat("Clinical pharmacology review text. ", 15)},
		{Number: 2, Text: strings.Repeat("Statistical review of endpoints. ", 15)},
	}

	c := New(120, 20)
	chunks, err := c.Chunk("review.pdf", pages)
	require.NoError(t, err)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
	}
}

func TestNewFallsBackOnBadParameters(t *testing.T) {
	// invalid size and overlap must not panic or produce a zero window
	c := New(0, -5)
	chunks, err := c.Chunk("doc.txt", []models.Page{{Number: 1, Text: "Some text."}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c = New(100, 100)
	chunks, err = c.Chunk("doc.txt", []models.Page{{Number: 1, Text: "Some more text."}})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
}

func nonSpaceLen(s string) int {
	return len(strings.Join(strings.Fields(s), ""))
}

func collectTexts(chunks []models.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}
