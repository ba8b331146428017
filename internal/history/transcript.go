package history

import (
	"sync"
)

// Transcript is the append-only, in-memory conversation history of one
// widget instance. It is never trimmed or persisted.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewTranscript creates an empty transcript
func NewTranscript() *Transcript {
	return &Transcript{turns: []Turn{}}
}

// AppendExchange records a completed round-trip: the user turn followed by
// the assistant turn. Both are added together so the transcript only ever
// grows in user/assistant pairs.
func (t *Transcript) AppendExchange(userContent, assistantContent string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.turns = append(t.turns,
		Turn{Role: RoleUser, Content: userContent},
		Turn{Role: RoleAssistant, Content: assistantContent},
	)
}

// Turns returns a copy of all turns in order
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of recorded turns
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}
