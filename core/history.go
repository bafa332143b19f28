package core

import "strings"

// Role identifies who produced a history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleCompanion Role = "companion"
)

// HistoryEntry is one turn in a conversation transcript.
// Entries are append-only and never updated; Sequence defines the total
// order within a namespace.
type HistoryEntry struct {
	Speaker  Role   `json:"speaker"`
	Text     string `json:"text"`
	Sequence int64  `json:"sequence"`
}

// Line renders the entry as a transcript line. User turns carry an
// explicit speaker prefix; companion turns are already written in the
// companion's voice (seed material included) and pass through verbatim.
func (e HistoryEntry) Line() string {
	if e.Speaker == RoleUser {
		return "User: " + e.Text
	}
	return e.Text
}

// ConversationContext is the per-turn assembly of short-term transcript
// and long-term retrieved passages. It is built fresh for each turn and
// owned by the caller; nothing in it is shared across turns.
type ConversationContext struct {
	RecentHistory     []HistoryEntry
	RetrievedPassages []string
}

// Transcript renders the recent history oldest-first, one line per entry.
// This is both the prompt transcript and the query text for retrieval.
func (c *ConversationContext) Transcript() string {
	lines := make([]string, 0, len(c.RecentHistory))
	for _, e := range c.RecentHistory {
		lines = append(lines, e.Line())
	}
	return strings.Join(lines, "\n")
}
