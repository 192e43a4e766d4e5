package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"pdf-assistant-be/pkg/store"
)

// MaxExchanges bounds history to the last N question/answer exchanges
// (2N turns).
const MaxExchanges = 5

const (
	ctxKeyFormat     = "%s:ctx"
	historyKeyFormat = "%s:history"
)

// Memory is the per-user conversational memory: session state plus a
// bounded, ordered turn history, both keyed by the user id in the session
// store.
type Memory struct {
	kv store.KVStore
}

func NewMemory(kv store.KVStore) *Memory {
	return &Memory{kv: kv}
}

// GetContext returns the user's session state, or an idle default when none
// exists yet.
func (m *Memory) GetContext(ctx context.Context, user string) (store.SessionState, error) {
	raw, err := m.kv.Get(ctx, fmt.Sprintf(ctxKeyFormat, user))
	if err != nil {
		return store.SessionState{}, err
	}
	if raw == nil {
		return store.SessionState{Mode: store.ModeIdle}, nil
	}

	var state store.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return store.SessionState{}, err
	}
	if state.Mode == "" {
		state.Mode = store.ModeIdle
	}
	return state, nil
}

func (m *Memory) SetContext(ctx context.Context, user string, state store.SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return m.kv.Set(ctx, fmt.Sprintf(ctxKeyFormat, user), raw)
}

// ClearContext removes session state and history for the user and deletes
// the transient document file the state referenced, if any.
func (m *Memory) ClearContext(ctx context.Context, user string) error {
	state, err := m.GetContext(ctx, user)
	if err == nil && state.DocumentRef != "" {
		if _, statErr := os.Stat(state.DocumentRef); statErr == nil {
			os.Remove(state.DocumentRef)
		}
	}

	if err := m.kv.Delete(ctx, fmt.Sprintf(ctxKeyFormat, user)); err != nil {
		return err
	}
	return m.kv.Delete(ctx, fmt.Sprintf(historyKeyFormat, user))
}

// AppendTurn records one exchange (user question, assistant answer) and trims
// history to the last MaxExchanges exchanges, oldest first out.
func (m *Memory) AppendTurn(ctx context.Context, user string, question string, answer string) error {
	turns, err := m.GetHistory(ctx, user)
	if err != nil {
		return err
	}

	turns = append(turns,
		store.Turn{Role: store.RoleUser, Content: question},
		store.Turn{Role: store.RoleAssistant, Content: answer},
	)
	if limit := MaxExchanges * 2; len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	raw, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	return m.kv.Set(ctx, fmt.Sprintf(historyKeyFormat, user), raw)
}

// GetHistory returns the user's turns oldest first, normalized to the
// canonical {role, content} shape.
func (m *Memory) GetHistory(ctx context.Context, user string) ([]store.Turn, error) {
	raw, err := m.kv.Get(ctx, fmt.Sprintf(historyKeyFormat, user))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return normalizeHistory(entries), nil
}

// normalizeHistory accepts the two legacy storage shapes and flattens them
// into canonical turns:
//   - {"role": ..., "content": ...} maps to one turn
//   - {"question": ..., "answer": ...} expands to a user turn then an
//     assistant turn
//
// Entries matching neither shape are skipped.
func normalizeHistory(entries []map[string]interface{}) []store.Turn {
	var turns []store.Turn
	for _, entry := range entries {
		role, hasRole := stringField(entry, "role")
		content, hasContent := stringField(entry, "content")
		if hasRole && hasContent {
			turns = append(turns, store.Turn{Role: role, Content: content})
			continue
		}

		question, hasQuestion := stringField(entry, "question")
		answer, hasAnswer := stringField(entry, "answer")
		if hasQuestion && hasAnswer {
			turns = append(turns,
				store.Turn{Role: store.RoleUser, Content: question},
				store.Turn{Role: store.RoleAssistant, Content: answer},
			)
		}
		// anything else is malformed and dropped
	}
	return turns
}

func stringField(entry map[string]interface{}, key string) (string, bool) {
	v, ok := entry[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
