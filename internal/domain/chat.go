package domain

import (
	"strings"
)

// Role identifies the author of a ChatTurn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Canned chat text. The assistant does not answer for real yet.
const (
	ChatGreeting    = "こんにちは！講義について質問があればお答えします。"
	ChatPlaceholder = "ご質問ありがとうございます。この機能は実装中です。"
)

// ChatTurn is one message in a transcript.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is an append-only list of turns for one open course page.
// It is not safe for concurrent use; callers serialize access.
type Transcript struct {
	turns []ChatTurn
}

// NewTranscript returns a transcript seeded with the assistant greeting.
func NewTranscript() *Transcript {
	return &Transcript{
		turns: []ChatTurn{{Role: RoleAssistant, Content: ChatGreeting}},
	}
}

// Send appends the user's message followed by reply and returns the two new
// turns. Blank input appends nothing and returns nil.
func (t *Transcript) Send(message, reply string) []ChatTurn {
	if strings.TrimSpace(message) == "" {
		return nil
	}
	added := []ChatTurn{
		{Role: RoleUser, Content: message},
		{Role: RoleAssistant, Content: reply},
	}
	t.turns = append(t.turns, added...)
	return added
}

// Turns returns a copy of the transcript.
func (t *Transcript) Turns() []ChatTurn {
	out := make([]ChatTurn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}
