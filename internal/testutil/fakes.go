// Package testutil provides deterministic fakes for the two external
// capabilities (embedding and text generation) so the pipeline can be
// tested without network access.
package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// FakeEmbedder maps text to a fixed-dimension bag-of-words vector via token
// hashing, L2-normalized. Embedding the same text twice yields bit-identical
// vectors, and texts sharing words score higher under cosine similarity.
type FakeEmbedder struct {
	Dims int
}

func NewFakeEmbedder() *FakeEmbedder {
	return &FakeEmbedder{Dims: 64}
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

func (f *FakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, f.Dims)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		h.Write([]byte(token))
		v[h.Sum32()%uint32(f.Dims)]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= scale
		}
	}
	return v, nil
}

func (f *FakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// FakeModel is a scripted llms.Model. It fails FailuresBeforeSuccess times
// with Err, then returns Response.
type FakeModel struct {
	Response              string
	Err                   error
	FailuresBeforeSuccess int

	Calls       int
	LastPrompts []string
}

func (m *FakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.Calls++
	m.LastPrompts = m.LastPrompts[:0]
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.LastPrompts = append(m.LastPrompts, text.Text)
			}
		}
	}
	if m.Calls <= m.FailuresBeforeSuccess {
		return nil, m.Err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.Response}},
	}, nil
}

func (m *FakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	res, err := m.GenerateContent(ctx, []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextContent{Text: prompt}}},
	}, options...)
	if err != nil {
		return "", err
	}
	return res.Choices[0].Content, nil
}
