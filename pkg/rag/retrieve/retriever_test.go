package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-assistant-be/pkg/store"
)

type stubRewriter struct {
	terms []string
}

func (s *stubRewriter) Rewrite(_ context.Context, _ string) []string {
	return s.terms
}

type stubIndex struct {
	passages []store.Passage
	queryErr error
	gotK     int
}

func (s *stubIndex) Replace(_ context.Context, _ string, _ []store.Passage) error {
	return nil
}

func (s *stubIndex) Query(_ context.Context, _ string, _ string, k int) ([]store.Passage, error) {
	s.gotK = k
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if len(s.passages) > k {
		return s.passages[:k], nil
	}
	return s.passages, nil
}

func (s *stubIndex) AllFor(_ context.Context, _ string) ([]store.Passage, error) {
	return s.passages, nil
}

func (s *stubIndex) Delete(_ context.Context, _ string) error {
	s.passages = nil
	return nil
}

func passagesOf(contents ...string) []store.Passage {
	out := make([]store.Passage, len(contents))
	for i, c := range contents {
		out[i] = store.Passage{Content: c}
	}
	return out
}

func TestRetrieveKeepsKeywordMatches(t *testing.T) {
	index := &stubIndex{passages: passagesOf(
		"The warranty covers two years of use.",
		"Shipping takes five business days.",
		"Extended Warranty can be purchased separately.",
	)}
	r := NewRetriever(&stubRewriter{terms: []string{"warranty"}}, index)

	got, err := r.Retrieve(context.Background(), "user-1", "how long is the warranty?")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"The warranty covers two years of use.",
		"Extended Warranty can be purchased separately.",
	}, got)
	assert.Equal(t, SimilarityFanOut, index.gotK)
}

func TestRetrieveFallsBackToTopFive(t *testing.T) {
	index := &stubIndex{passages: passagesOf(
		"one", "two", "three", "four", "five", "six", "seven",
	)}
	r := NewRetriever(&stubRewriter{terms: []string{"nomatch"}}, index)

	got, err := r.Retrieve(context.Background(), "user-1", "unrelated question")
	require.NoError(t, err)
	// No keyword survivor: exactly the top 5 similarity results, not empty.
	assert.Equal(t, []string{"one", "two", "three", "four", "five"}, got)
}

func TestRetrieveEmptyIndexYieldsEmptyContext(t *testing.T) {
	r := NewRetriever(&stubRewriter{terms: []string{"anything"}}, &stubIndex{})

	got, err := r.Retrieve(context.Background(), "user-1", "question")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrievePropagatesIndexError(t *testing.T) {
	indexErr := errors.New("search backend down")
	r := NewRetriever(&stubRewriter{}, &stubIndex{queryErr: indexErr})

	_, err := r.Retrieve(context.Background(), "user-1", "question")
	assert.ErrorIs(t, err, indexErr)
}
