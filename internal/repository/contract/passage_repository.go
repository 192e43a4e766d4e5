package contract

import (
	"context"

	"pdf-assistant-be/internal/model"
)

// ScoredPassageEmbedding carries a passage row with its cosine similarity
// to the query vector.
type ScoredPassageEmbedding struct {
	Embedding  *model.PassageEmbedding
	Similarity float64
}

// PassageRepository is the storage side of the vector index. ReplaceForOwner
// must be atomic: readers never observe a mix of old and new rows for the
// same owner.
type PassageRepository interface {
	ReplaceForOwner(ctx context.Context, owner string, passages []*model.PassageEmbedding) error
	SearchSimilar(ctx context.Context, owner string, embedding []float32, limit int) ([]*ScoredPassageEmbedding, error)
	FindAllByOwner(ctx context.Context, owner string) ([]*model.PassageEmbedding, error)
	DeleteByOwner(ctx context.Context, owner string) error
}
