package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// PassageEmbedding stores one indexed passage for one owner. Owner is a
// first-class partition key: every query carries it, and a re-upload replaces
// all rows for that owner inside a single transaction.
type PassageEmbedding struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Owner          string            `gorm:"type:varchar(64);not null;index"`
	Content        string            `gorm:"type:text"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	EmbeddingValue pgvector.Vector   `gorm:"type:vector(768)"` // Gemini text-embedding-004 uses 768 dimensions
	Position       int               `gorm:"default:0"` // insertion order within the upload, used for tie-breaks
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
}

func (PassageEmbedding) TableName() string {
	return "passage_embeddings"
}
