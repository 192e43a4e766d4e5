package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Dimension of text-embedding-004 vectors; must match the vector column width.
const Dimension = 768

type embeddingRequestContentPart struct {
	Text string `json:"text"`
}

type embeddingRequestContent struct {
	Parts []embeddingRequestContentPart `json:"parts"`
}

type embeddingRequest struct {
	Model    string                  `json:"model"`
	Content  embeddingRequestContent `json:"content"`
	TaskType string                  `json:"task_type,omitempty"`
}

type embeddingResponseValues struct {
	Values []float32 `json:"values"`
}

type embeddingResponse struct {
	Embedding embeddingResponseValues `json:"embedding"`
}

type GeminiProvider struct {
	apiKey     string
	httpClient *http.Client
}

func NewGeminiProvider(apiKey string) Provider {
	return &GeminiProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

func (p *GeminiProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	modelName := "text-embedding-004"

	geminiReq := embeddingRequest{
		Model: modelName,
		Content: embeddingRequestContent{
			Parts: []embeddingRequestContentPart{{Text: text}},
		},
		TaskType: taskType,
	}
	geminiReqJson, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1/models/%s:embedContent",
		modelName,
	)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(geminiReqJson))
	if err != nil {
		return nil, err
	}

	req.Header.Set("x-goog-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error from gemini response, code %d, body %s", res.StatusCode, string(resByte))
	}

	var resEmbedding embeddingResponse
	if err := json.Unmarshal(resByte, &resEmbedding); err != nil {
		return nil, err
	}

	return resEmbedding.Embedding.Values, nil
}
