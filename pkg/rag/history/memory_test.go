package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-assistant-be/pkg/store"
)

func newMemory() *Memory {
	return NewMemory(store.NewMemoryStore())
}

func TestGetContextDefaultsToIdle(t *testing.T) {
	m := newMemory()

	state, err := m.GetContext(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, store.SessionState{Mode: store.ModeIdle}, state)
}

func TestSetAndGetContext(t *testing.T) {
	m := newMemory()
	ctx := context.Background()

	want := store.SessionState{
		HasDocument: true,
		Mode:        store.ModeQuerying,
		QueryCount:  2,
		DocumentRef: "/tmp/doc.pdf",
	}
	require.NoError(t, m.SetContext(ctx, "user-1", want))

	got, err := m.GetContext(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAppendTurnTrimsOldestFirst(t *testing.T) {
	m := newMemory()
	ctx := context.Background()

	for i := 1; i <= MaxExchanges+2; i++ {
		q := fmt.Sprintf("question %d", i)
		a := fmt.Sprintf("answer %d", i)
		require.NoError(t, m.AppendTurn(ctx, "user-1", q, a))

		turns, err := m.GetHistory(ctx, "user-1")
		require.NoError(t, err)
		assert.LessOrEqual(t, len(turns), MaxExchanges*2)
	}

	turns, err := m.GetHistory(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, turns, MaxExchanges*2)

	// Exchanges 1 and 2 were evicted; the oldest survivor is exchange 3.
	assert.Equal(t, store.Turn{Role: store.RoleUser, Content: "question 3"}, turns[0])
	assert.Equal(t, store.Turn{Role: store.RoleAssistant, Content: "answer 7"}, turns[len(turns)-1])
}

func TestGetHistoryNormalizesLegacyShapes(t *testing.T) {
	kv := store.NewMemoryStore()
	m := NewMemory(kv)
	ctx := context.Background()

	raw := `[
		{"role": "user", "content": "earlier question"},
		{"question": "q", "answer": "a"},
		{"garbage": true},
		{"role": "assistant"},
		{"role": "assistant", "content": "earlier answer"}
	]`
	require.NoError(t, kv.Set(ctx, "user-1:history", []byte(raw)))

	turns, err := m.GetHistory(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []store.Turn{
		{Role: store.RoleUser, Content: "earlier question"},
		{Role: store.RoleUser, Content: "q"},
		{Role: store.RoleAssistant, Content: "a"},
		{Role: store.RoleAssistant, Content: "earlier answer"},
	}, turns)
}

func TestClearContextRemovesStateHistoryAndDocument(t *testing.T) {
	m := newMemory()
	ctx := context.Background()

	docPath := filepath.Join(t.TempDir(), "upload.pdf")
	require.NoError(t, os.WriteFile(docPath, []byte("pdf bytes"), 0644))

	require.NoError(t, m.SetContext(ctx, "user-1", store.SessionState{
		HasDocument: true,
		Mode:        store.ModeQuerying,
		DocumentRef: docPath,
	}))
	require.NoError(t, m.AppendTurn(ctx, "user-1", "q", "a"))

	require.NoError(t, m.ClearContext(ctx, "user-1"))

	state, err := m.GetContext(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, store.SessionState{Mode: store.ModeIdle}, state)

	turns, err := m.GetHistory(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	_, statErr := os.Stat(docPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUsersDoNotShareMemory(t *testing.T) {
	m := newMemory()
	ctx := context.Background()

	require.NoError(t, m.AppendTurn(ctx, "user-1", "private q", "private a"))

	turns, err := m.GetHistory(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, turns)
}
