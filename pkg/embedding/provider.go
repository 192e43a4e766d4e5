package embedding

import "context"

// Task types understood by the embedding backend.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Provider defines the interface for generating text embeddings
type Provider interface {
	Generate(ctx context.Context, text string, taskType string) ([]float32, error)
}
