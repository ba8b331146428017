package history

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptAppendExchange(t *testing.T) {
	tr := NewTranscript()
	require.Equal(t, 0, tr.Len())

	tr.AppendExchange("hello", "hi there")
	tr.AppendExchange("pricing?", "it depends")

	turns := tr.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, Turn{Role: RoleUser, Content: "hello"}, turns[0])
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "hi there"}, turns[1])
	assert.Equal(t, RoleUser, turns[2].Role)
	assert.Equal(t, RoleAssistant, turns[3].Role)
}

func TestTranscriptTurnsIsACopy(t *testing.T) {
	tr := NewTranscript()
	tr.AppendExchange("a", "b")

	turns := tr.Turns()
	turns[0].Content = "mutated"

	assert.Equal(t, "a", tr.Turns()[0].Content)
}

func TestTranscriptConcurrentAppendsStayPaired(t *testing.T) {
	tr := NewTranscript()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.AppendExchange("q", "a")
		}()
	}
	wg.Wait()

	turns := tr.Turns()
	require.Len(t, turns, 40)
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, RoleUser, turns[i].Role)
		assert.Equal(t, RoleAssistant, turns[i+1].Role)
	}
}

func TestNewSessionID(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := NewSessionID(now)

	assert.Regexp(t, SessionIDPattern, id)
	assert.Contains(t, id, "session_1700000000123_")
	assert.Len(t, id, len("session_1700000000123_")+sessionSuffixLen)
}

func TestNewSessionIDSuffixVaries(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[NewSessionID(now)] = true
	}
	assert.Greater(t, len(seen), 45)
}
