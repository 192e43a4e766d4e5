package store

// Passage is a merged, retrieval-sized unit of document text.
// Metadata carries whatever the parser reported for the source page;
// absent fields are omitted, never stored as nil values.
type Passage struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SessionState is the per-user session context persisted in the session store.
// The field set is closed; invalid states are unrepresentable, unlike the
// loose dictionaries this replaces.
type SessionState struct {
	HasDocument bool   `json:"has_document"`
	Mode        string `json:"mode"` // ModeIdle | ModeQuerying
	QueryCount  int    `json:"query_count"`
	LastSummary string `json:"last_summary,omitempty"`
	DocumentRef string `json:"document_ref,omitempty"` // local path of the downloaded document
}

const (
	ModeIdle     = "idle"
	ModeQuerying = "querying"
)

// Turn is one message in conversational history.
type Turn struct {
	Role    string `json:"role"` // RoleUser | RoleAssistant
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
