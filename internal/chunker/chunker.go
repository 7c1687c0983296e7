package chunker

import (
	"fmt"
	"strings"

	"github.com/shahidattar7777/pharma-doc-agent/internal/models"

	"github.com/tmc/langchaingo/textsplitter"
)

// defaults mirror the ingest configuration: 1000-character windows with a
// 1:5 overlap ratio
const defaultChunkSize = 1000

// Chunker splits page text into overlapping windows. Each page is split
// independently so a chunk never crosses a page boundary.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// New returns a chunker with the given window size and overlap in
// characters. Non-positive size or an overlap that is negative or not
// smaller than the size falls back to the defaults.
func New(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
		// the splitter drops separators by default, losing a character
		// or two at every chunk boundary
		textsplitter.WithKeepSeparator(true),
	)
	return &Chunker{splitter: splitter}
}

// Chunk splits the pages of a document into chunks carrying the document
// name and page number. Chunk indexes are global within the document and
// increase in page order. Empty input produces empty output, not an error.
func (c *Chunker) Chunk(documentName string, pages []models.Page) ([]models.Chunk, error) {
	var chunks []models.Chunk
	idx := 0
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		splits, err := c.splitter.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to split page %d of %s: %v", page.Number, documentName, err)
		}
		for _, split := range splits {
			if strings.TrimSpace(split) == "" {
				continue
			}
			chunks = append(chunks, models.Chunk{
				Text:         split,
				DocumentName: documentName,
				PageNumber:   page.Number,
				ChunkIndex:   idx,
			})
			idx++
		}
	}
	return chunks, nil
}
