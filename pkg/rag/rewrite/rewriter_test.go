package rewrite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pdf-assistant-be/pkg/llm"
)

type stubProvider struct {
	response string
	err      error
}

func (s *stubProvider) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	return s.response, s.err
}

func (s *stubProvider) Generate(_ context.Context, _ string, _ ...llm.Option) (string, error) {
	return s.response, s.err
}

func TestRewrite(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		question string
		want     []string
	}{
		{
			name:     "plain JSON list",
			response: `["revenue growth", "Q3 earnings"]`,
			question: "How did revenue grow in Q3?",
			want:     []string{"revenue growth", "q3 earnings"},
		},
		{
			name:     "fenced JSON list",
			response: "```json\n[\"warranty\", \"Refund Policy\"]\n```",
			question: "What is the warranty?",
			want:     []string{"warranty", "refund policy"},
		},
		{
			name:     "more than five phrases are capped",
			response: `["a","b","c","d","e","f","g"]`,
			question: "many terms",
			want:     []string{"a", "b", "c", "d", "e"},
		},
		{
			name:     "unparsable response falls back to question tokens",
			response: "Sure! Here are some keywords: warranty, refund",
			question: "What Is The Warranty Period",
			want:     []string{"what", "is", "the"},
		},
		{
			name:     "empty list falls back",
			response: `[]`,
			question: "short question",
			want:     []string{"short", "question"},
		},
		{
			name:     "provider error falls back",
			err:      errors.New("generation unavailable"),
			question: "Does it ship internationally?",
			want:     []string{"does", "it", "ship"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRewriter(&stubProvider{response: tt.response, err: tt.err})
			got := r.Rewrite(context.Background(), tt.question)
			assert.Equal(t, tt.want, got)
		})
	}
}
