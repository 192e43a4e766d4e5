package rewrite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pdf-assistant-be/pkg/llm"
)

const (
	// MaxTerms caps the keyword phrases extracted from a question.
	MaxTerms = 5

	// fallbackTokens is how many question tokens the deterministic
	// fallback keeps when extraction fails.
	fallbackTokens = 3

	rewritePrompt = "Extract up to 5 concise keyword phrases from the user question " +
		"that would best help search the document. " +
		"Return them as a JSON list."
)

// Rewriter derives lexical keyword phrases from a free-text question to
// support re-ranking of similarity results.
type Rewriter struct {
	provider llm.Provider
}

func NewRewriter(provider llm.Provider) *Rewriter {
	return &Rewriter{provider: provider}
}

// Rewrite asks the generation service for keyword phrases and parses a JSON
// list from the response. It never fails: on any error or unparsable
// response it falls back to the first tokens of the lower-cased question.
func (r *Rewriter) Rewrite(ctx context.Context, question string) []string {
	prompt := fmt.Sprintf("SYSTEM: %s\nQUESTION: %s", rewritePrompt, question)

	text, err := r.provider.Generate(ctx, prompt)
	if err != nil {
		return fallbackTerms(question)
	}

	terms, err := parseTermList(text)
	if err != nil || len(terms) == 0 {
		return fallbackTerms(question)
	}

	if len(terms) > MaxTerms {
		terms = terms[:MaxTerms]
	}
	for i, term := range terms {
		terms[i] = strings.ToLower(strings.TrimSpace(term))
	}
	return terms
}

// parseTermList strips an optional markdown code fence and decodes the
// remainder as a JSON string list.
func parseTermList(text string) ([]string, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var terms []string
	if err := json.Unmarshal([]byte(cleaned), &terms); err != nil {
		return nil, err
	}
	return terms, nil
}

func fallbackTerms(question string) []string {
	tokens := strings.Fields(strings.ToLower(question))
	if len(tokens) > fallbackTokens {
		tokens = tokens[:fallbackTokens]
	}
	return tokens
}
