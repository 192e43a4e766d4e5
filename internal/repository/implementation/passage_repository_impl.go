package implementation

import (
	"context"

	"pdf-assistant-be/internal/model"
	"pdf-assistant-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type PassageRepositoryImpl struct {
	db *gorm.DB
}

func NewPassageRepository(db *gorm.DB) contract.PassageRepository {
	return &PassageRepositoryImpl{db: db}
}

// ReplaceForOwner swaps the owner's passages in one transaction so readers
// see either the previous upload or the new one, never a mix.
func (r *PassageRepositoryImpl) ReplaceForOwner(ctx context.Context, owner string, passages []*model.PassageEmbedding) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner = ?", owner).Delete(&model.PassageEmbedding{}).Error; err != nil {
			return err
		}
		if len(passages) == 0 {
			return nil
		}
		return tx.CreateInBatches(passages, 100).Error
	})
}

func (r *PassageRepositoryImpl) SearchSimilar(ctx context.Context, owner string, embedding []float32, limit int) ([]*contract.ScoredPassageEmbedding, error) {
	if limit <= 0 {
		limit = 5
	}

	// Cosine distance in pgvector is: 1 - cosine_similarity
	// So we compute: 1 - (embedding_value <=> query_vector) = cosine_similarity
	type result struct {
		model.PassageEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("passage_embeddings").
		Select("passage_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("owner = ?", owner).
		Order("similarity DESC, position ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredPassageEmbedding, len(results))
	for i, res := range results {
		row := res.PassageEmbedding
		scored[i] = &contract.ScoredPassageEmbedding{
			Embedding:  &row,
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

func (r *PassageRepositoryImpl) FindAllByOwner(ctx context.Context, owner string) ([]*model.PassageEmbedding, error) {
	var rows []*model.PassageEmbedding
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PassageRepositoryImpl) DeleteByOwner(ctx context.Context, owner string) error {
	return r.db.WithContext(ctx).Where("owner = ?", owner).Delete(&model.PassageEmbedding{}).Error
}
