package generate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/shahidattar7777/pharma-doc-agent/internal/config"
	"github.com/shahidattar7777/pharma-doc-agent/internal/models"
	"github.com/shahidattar7777/pharma-doc-agent/internal/prompt"
)

const (
	temperature = 0.1
	maxTokens   = 2048
)

// GenerationError means the LLM call failed (timeout, rate limit,
// malformed response). It fails the whole query.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// citationPattern matches the [Source: <document>, Page <n>] markers the
// prompt instructs the model to emit.
var citationPattern = regexp.MustCompile(`(?i)\[source:\s*([^,\]]+),\s*page\s*(\d+)\]`)

// NewModel builds the chat model for the configured provider.
func NewModel(llmConfig *config.LLMConfig) (llms.Model, error) {
	switch llmConfig.Provider {
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	case "openai", "":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown inference provider: %s", llmConfig.Provider)
	}
}

// Generator turns an assembled prompt into a cited answer.
type Generator struct {
	model llms.Model
	// one extra attempt on a failed call; correctness never depends on it
	singleRetry bool
}

func New(model llms.Model) *Generator {
	return &Generator{model: model, singleRetry: true}
}

// Generate calls the model and maps the citation markers in its response
// back to the retrieval that fed the prompt. Markers that do not match any
// retrieved (document, page) pair are dropped; if no markers parse at all
// and something was retrieved, every retrieved source is cited.
func (g *Generator) Generate(ctx context.Context, p prompt.Prompt, result models.RetrievalResult) (models.Answer, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: p.System}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: p.User}},
		},
	}

	text, err := g.complete(ctx, messages)
	if err != nil {
		return models.Answer{}, &GenerationError{Err: err}
	}

	return models.Answer{
		Text:      text,
		Citations: extractCitations(text, result),
	}, nil
}

func (g *Generator) complete(ctx context.Context, messages []llms.MessageContent) (string, error) {
	res, err := g.generateContent(ctx, messages)
	if err != nil && g.singleRetry && ctx.Err() == nil {
		log.Warn().Err(err).Msg("LLM call failed, retrying once")
		res, err = g.generateContent(ctx, messages)
	}
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return res.Choices[0].Content, nil
}

func (g *Generator) generateContent(ctx context.Context, messages []llms.MessageContent) (*llms.ContentResponse, error) {
	return g.model.GenerateContent(ctx, messages,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
}

// extractCitations parses the citation markers out of the generated text.
// Only pairs that actually appear in the retrieval survive, deduplicated in
// first-mention order.
func extractCitations(text string, result models.RetrievalResult) []models.Citation {
	var citations []models.Citation
	seen := make(map[models.Citation]bool)

	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		doc := strings.TrimSpace(m[1])
		page, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		c := models.Citation{DocumentName: doc, PageNumber: page}
		if seen[c] || !result.Contains(doc, page) {
			continue
		}
		seen[c] = true
		citations = append(citations, c)
	}

	// model cited nothing parsable: fall back to every retrieved source
	if len(citations) == 0 {
		for _, sc := range result {
			c := models.Citation{DocumentName: sc.DocumentName, PageNumber: sc.PageNumber}
			if seen[c] {
				continue
			}
			seen[c] = true
			citations = append(citations, c)
		}
	}

	return citations
}
