package models

import "fmt"

// Page holds the extracted text of one page of a source document.
// Page numbers are 1-based; formats without real pages use a single page 1
// or the sheet/slide number.
type Page struct {
	Number int
	Text   string
}

// Chunk is an immutable window of a single page's text. A chunk never spans
// a page boundary. ChunkIndex is global within the document, increasing in
// page order.
type Chunk struct {
	Text         string
	DocumentName string
	PageNumber   int
	ChunkIndex   int
}

// ID returns the stable store identifier for the chunk, derived from
// (document name, chunk index).
func (c Chunk) ID() string {
	return fmt.Sprintf("%s#%04d", c.DocumentName, c.ChunkIndex)
}

// EmbeddedChunk pairs a chunk with its embedding vector.
type EmbeddedChunk struct {
	Chunk
	Embedding []float32
}

// ScoredChunk is a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk
	Score float32
}

// RetrievalResult is an ordered sequence of scored chunks, ranked by
// non-increasing score.
type RetrievalResult []ScoredChunk

// Empty reports whether nothing was retrieved.
func (r RetrievalResult) Empty() bool { return len(r) == 0 }

// Contains reports whether any retrieved chunk came from the given
// document and page.
func (r RetrievalResult) Contains(documentName string, pageNumber int) bool {
	for _, sc := range r {
		if sc.DocumentName == documentName && sc.PageNumber == pageNumber {
			return true
		}
	}
	return false
}

// Citation points at the source of a factual claim in an answer.
type Citation struct {
	DocumentName string
	PageNumber   int
}

func (c Citation) String() string {
	return fmt.Sprintf("%s, Page %d", c.DocumentName, c.PageNumber)
}

// Answer is the generated response plus the sources it actually used.
// Citations are deduplicated in first-mention order and always correspond
// to chunks from the retrieval that produced the answer.
type Answer struct {
	Text      string
	Citations []Citation
}
