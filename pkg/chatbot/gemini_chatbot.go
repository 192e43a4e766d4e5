package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"pdf-assistant-be/pkg/llm"
)

type GeminiChatParts struct {
	Text string `json:"text"`
}

type GeminiChatContent struct {
	Parts []*GeminiChatParts `json:"parts"`
	Role  string             `json:"role"`
}

type GeminiChatRequest struct {
	Contents []*GeminiChatContent `json:"contents"`
}

type GeminiChatCandidate struct {
	Content *GeminiChatContent `json:"content"`
}

type GeminiChatResponse struct {
	Candidates []*GeminiChatCandidate `json:"candidates"`
}

const (
	geminiRoleUser  = "user"
	geminiRoleModel = "model"

	defaultModel = "gemini-2.5-flash"
)

// GeminiProvider implements llm.Provider against the Generative Language API.
type GeminiProvider struct {
	apiKey     string
	httpClient *http.Client
}

func NewGeminiProvider(apiKey string) llm.Provider {
	return &GeminiProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

func (p *GeminiProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Options{Model: defaultModel}
	for _, opt := range options {
		opt(&opts)
	}

	chatContents := make([]*GeminiChatContent, 0, len(history))
	for _, msg := range history {
		role := geminiRoleUser
		if msg.Role == "assistant" {
			role = geminiRoleModel
		}
		chatContents = append(chatContents, &GeminiChatContent{
			Parts: []*GeminiChatParts{{Text: msg.Content}},
			Role:  role,
		})
	}

	payload := GeminiChatRequest{Contents: chatContents}
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1/models/%s:generateContent",
		opts.Model,
	)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(payloadJson))
	if err != nil {
		return "", err
	}

	req.Header.Set("x-goog-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf(
			"status error, got status %d. with response body %s",
			res.StatusCode,
			string(resBody),
		)
	}

	var geminiRes GeminiChatResponse
	if err := json.Unmarshal(resBody, &geminiRes); err != nil {
		return "", err
	}

	if len(geminiRes.Candidates) == 0 ||
		geminiRes.Candidates[0].Content == nil ||
		len(geminiRes.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty candidates in gemini response: %s", string(resBody))
	}

	return geminiRes.Candidates[0].Content.Parts[0].Text, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}
