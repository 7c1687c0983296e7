package prompt

import (
	"fmt"
	"strings"

	"github.com/shahidattar7777/pharma-doc-agent/internal/models"
)

const systemPrompt = `You are a Regulatory Document Intelligence Agent specialized in analyzing
FDA drug review documents. You help pharmaceutical scientists, regulatory affairs professionals,
and medical affairs teams extract insights from FDA approval packages.

You have access to retrieved context from FDA drug review documents. Use this context to answer
questions accurately.

INSTRUCTIONS:
1. THINK step by step before answering. Break down complex regulatory questions into parts.
2. ALWAYS cite which document and page your information comes from, using the exact form
   [Source: <document>, Page <n>] for every factual claim.
3. If the context does not contain enough information, say so clearly. NEVER fabricate FDA data.
4. When comparing drugs, organize your response systematically by evaluation criteria.
5. For safety/efficacy questions, distinguish between what the FDA reviewer stated vs.
   what the sponsor claimed.

CHAIN-OF-THOUGHT FORMAT:
When answering complex questions, structure your reasoning as:
- Step 1: Identify - What specific regulatory concept does the question require?
- Step 2: Locate - What supporting passages did I find in the retrieved documents?
- Step 3: Analyze - How do these passages answer the question?
- Step 4: Conclude - Provide a clear, sourced answer.

For simple factual lookups, answer directly with the citations.`

const noContextNotice = `No relevant source material was found in the document index.
State clearly that no relevant source material was found. Do not answer from general
knowledge and do not fabricate citations.`

const contextSeparator = "\n\n---\n\n"

// Prompt is the assembled input for one generation call.
type Prompt struct {
	System string
	User   string
}

// Build assembles the chain-of-thought prompt from the question and the
// retrieved chunks. Each chunk is labeled with its document and page so the
// model can cite them. When nothing was retrieved, the prompt instructs the
// model to say so rather than fabricate an answer.
func Build(question string, result models.RetrievalResult) Prompt {
	var context strings.Builder
	if result.Empty() {
		context.WriteString(noContextNotice)
	} else {
		context.WriteString("RETRIEVED CONTEXT FROM FDA DOCUMENTS:\n\n")
		parts := make([]string, 0, len(result))
		for _, sc := range result {
			parts = append(parts, fmt.Sprintf("[Source: %s, Page %d]\n%s", sc.DocumentName, sc.PageNumber, sc.Text))
		}
		context.WriteString(strings.Join(parts, contextSeparator))
	}

	return Prompt{
		System: systemPrompt + "\n\n" + context.String(),
		User:   question,
	}
}
