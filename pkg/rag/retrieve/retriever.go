package retrieve

import (
	"context"
	"strings"

	"pdf-assistant-be/pkg/vectorindex"
)

const (
	// SimilarityFanOut is how many candidates the similarity query returns.
	SimilarityFanOut = 15

	// FallbackTopK is how many unfiltered results survive when no candidate
	// contains a keyword.
	FallbackTopK = 5
)

// QueryRewriter produces lower-cased keyword phrases for a question.
type QueryRewriter interface {
	Rewrite(ctx context.Context, question string) []string
}

// Retriever turns a question into grounding context: similarity search,
// keyword re-filter, and a top-K fallback so a non-empty index never
// starves the answer of context.
type Retriever struct {
	rewriter QueryRewriter
	index    vectorindex.Index
}

func NewRetriever(rewriter QueryRewriter, index vectorindex.Index) *Retriever {
	return &Retriever{
		rewriter: rewriter,
		index:    index,
	}
}

// Retrieve returns ordered passage contents for the owner's question. The
// result is empty only when the owner's index itself is empty.
func (r *Retriever) Retrieve(ctx context.Context, owner string, question string) ([]string, error) {
	terms := r.rewriter.Rewrite(ctx, question)

	candidates, err := r.index.Query(ctx, owner, question, SimilarityFanOut)
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, p := range candidates {
		if containsAnyTerm(p.Content, terms) {
			matched = append(matched, p.Content)
		}
	}
	if len(matched) > 0 {
		return matched, nil
	}

	// Vector similarity can surface topically-near but lexically-unrelated
	// text; when the keyword filter strikes out, keep the top similarity
	// hits instead of returning nothing.
	limit := FallbackTopK
	if len(candidates) < limit {
		limit = len(candidates)
	}
	fallback := make([]string, 0, limit)
	for _, p := range candidates[:limit] {
		fallback = append(fallback, p.Content)
	}
	return fallback, nil
}

func containsAnyTerm(content string, terms []string) bool {
	lower := strings.ToLower(content)
	for _, term := range terms {
		if term != "" && strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
