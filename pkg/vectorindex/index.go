package vectorindex

import (
	"context"
	"fmt"

	"pdf-assistant-be/internal/model"
	"pdf-assistant-be/internal/repository/contract"
	"pdf-assistant-be/pkg/embedding"
	"pdf-assistant-be/pkg/store"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// Index is the per-owner passage index. Replace discards every prior entry
// for the owner before inserting the new upload; Query and AllFor only ever
// see a single upload's entries for a given owner. Delete drops the owner's
// entries entirely, so no passage outlives an ended session.
type Index interface {
	Replace(ctx context.Context, owner string, passages []store.Passage) error
	Query(ctx context.Context, owner string, query string, k int) ([]store.Passage, error)
	AllFor(ctx context.Context, owner string) ([]store.Passage, error)
	Delete(ctx context.Context, owner string) error
}

// PgVectorIndex embeds passage content through the embedding provider and
// stores the vectors in Postgres via the passage repository.
type PgVectorIndex struct {
	repo     contract.PassageRepository
	embedder embedding.Provider
}

func NewPgVectorIndex(repo contract.PassageRepository, embedder embedding.Provider) *PgVectorIndex {
	return &PgVectorIndex{
		repo:     repo,
		embedder: embedder,
	}
}

func (idx *PgVectorIndex) Replace(ctx context.Context, owner string, passages []store.Passage) error {
	rows := make([]*model.PassageEmbedding, 0, len(passages))
	for i, p := range passages {
		vector, err := idx.embedder.Generate(ctx, p.Content, embedding.TaskRetrievalDocument)
		if err != nil {
			return fmt.Errorf("embed passage %d: %w", i, err)
		}
		rows = append(rows, &model.PassageEmbedding{
			Owner:          owner,
			Content:        p.Content,
			Metadata:       datatypes.JSONMap(p.Metadata),
			EmbeddingValue: pgvector.NewVector(vector),
			Position:       i,
		})
	}

	if err := idx.repo.ReplaceForOwner(ctx, owner, rows); err != nil {
		return fmt.Errorf("replace passages for owner %s: %w", owner, err)
	}
	return nil
}

func (idx *PgVectorIndex) Query(ctx context.Context, owner string, query string, k int) ([]store.Passage, error) {
	vector, err := idx.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := idx.repo.SearchSimilar(ctx, owner, vector, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search for owner %s: %w", owner, err)
	}

	passages := make([]store.Passage, 0, len(scored))
	for _, s := range scored {
		passages = append(passages, toPassage(s.Embedding))
	}
	return passages, nil
}

func (idx *PgVectorIndex) AllFor(ctx context.Context, owner string) ([]store.Passage, error) {
	rows, err := idx.repo.FindAllByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load passages for owner %s: %w", owner, err)
	}

	passages := make([]store.Passage, 0, len(rows))
	for _, row := range rows {
		passages = append(passages, toPassage(row))
	}
	return passages, nil
}

func (idx *PgVectorIndex) Delete(ctx context.Context, owner string) error {
	if err := idx.repo.DeleteByOwner(ctx, owner); err != nil {
		return fmt.Errorf("delete passages for owner %s: %w", owner, err)
	}
	return nil
}

func toPassage(row *model.PassageEmbedding) store.Passage {
	return store.Passage{
		Content:  row.Content,
		Metadata: map[string]interface{}(row.Metadata),
	}
}
