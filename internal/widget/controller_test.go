package widget

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/chatapi"
	"chat-widget/internal/history"
)

type fakeSender struct {
	mu       sync.Mutex
	requests []chatapi.Request
	reply    func(req chatapi.Request) (*chatapi.Response, error)
}

func (f *fakeSender) Chat(ctx context.Context, req chatapi.Request) (*chatapi.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.reply(req)
}

func (f *fakeSender) calls() []chatapi.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chatapi.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

func succeedWith(text, session string) *fakeSender {
	return &fakeSender{reply: func(chatapi.Request) (*chatapi.Response, error) {
		return chatapi.Success(text, session), nil
	}}
}

func newTestController(sender Sender) (*Controller, *Recorder) {
	rec := NewRecorder(nil)
	ctrl := New(sender, WithView(rec), WithLogger(zerolog.Nop()))
	return ctrl, rec
}

func TestToggleAssignsSessionOnce(t *testing.T) {
	clock := func() time.Time { return time.UnixMilli(1712345678901) }
	rec := NewRecorder(nil)
	ctrl := New(succeedWith("", ""), WithView(rec), WithClock(clock), WithLogger(zerolog.Nop()))

	require.Empty(t, ctrl.Snapshot().SessionID)
	require.False(t, ctrl.Snapshot().Visible)

	ctrl.Toggle()
	state := ctrl.Snapshot()
	require.True(t, state.Visible)
	assert.Regexp(t, history.SessionIDPattern, state.SessionID)
	assert.Contains(t, state.SessionID, "session_1712345678901_")
	first := state.SessionID

	ctrl.Toggle()
	assert.False(t, ctrl.Snapshot().Visible)
	assert.Equal(t, first, ctrl.Snapshot().SessionID)

	ctrl.Toggle()
	assert.Equal(t, first, ctrl.Snapshot().SessionID)

	assert.Equal(t, []EventKind{EventShowBody, EventHideBody, EventShowBody}, rec.Kinds())
}

func TestSendMessageSuccess(t *testing.T) {
	sender := succeedWith("hi", "abc")
	ctrl, rec := newTestController(sender)
	ctrl.Toggle()

	require.True(t, ctrl.SendMessage(context.Background(), "  hello  "))

	state := ctrl.Snapshot()
	require.Len(t, state.Turns, 2)
	assert.Equal(t, history.Turn{Role: history.RoleUser, Content: "hello"}, state.Turns[0])
	assert.Equal(t, history.Turn{Role: history.RoleAssistant, Content: "hi"}, state.Turns[1])
	assert.Equal(t, "abc", state.SessionID)
	assert.False(t, state.InFlight)

	assert.Equal(t, []EventKind{
		EventShowBody,
		EventUserMessage,
		EventClearInput,
		EventShowThinking,
		EventControls,
		EventHideThinking,
		EventAssistantMessage,
		EventControls,
		EventFocusInput,
	}, rec.Kinds())

	events := rec.Events()
	assert.Equal(t, "hello", events[1].Text)
	assert.Equal(t, "false", events[4].Text)
	assert.Equal(t, "hi", events[6].Raw)
	assert.Equal(t, "true", events[7].Text)
}

func TestSendMessageRequestCarriesHistoryAndSession(t *testing.T) {
	sender := succeedWith("reply", "")
	ctrl, _ := newTestController(sender)

	// not opened yet: no session
	require.True(t, ctrl.SendMessage(context.Background(), "first"))
	ctrl.Toggle()
	session := ctrl.Snapshot().SessionID
	require.True(t, ctrl.SendMessage(context.Background(), "second"))

	calls := sender.calls()
	require.Len(t, calls, 2)
	assert.Nil(t, calls[0].SessionID)
	assert.Empty(t, calls[0].ConversationHistory)

	require.NotNil(t, calls[1].SessionID)
	assert.Equal(t, session, *calls[1].SessionID)
	assert.Equal(t, []history.Turn{
		{Role: history.RoleUser, Content: "first"},
		{Role: history.RoleAssistant, Content: "reply"},
	}, calls[1].ConversationHistory)

	// an empty session id in the reply keeps the current one
	assert.Equal(t, session, ctrl.Snapshot().SessionID)
}

func TestSendMessageFormatsReply(t *testing.T) {
	ctrl, rec := newTestController(succeedWith("**bold** and *italic*\nnext line", ""))
	require.True(t, ctrl.SendMessage(context.Background(), "x"))

	var got Event
	for _, e := range rec.Events() {
		if e.Kind == EventAssistantMessage {
			got = e
		}
	}
	assert.Equal(t, "<strong>bold</strong> and <em>italic</em><br>next line", got.Text)
	assert.Equal(t, "**bold** and *italic*\nnext line", got.Raw)
	// history keeps the unformatted reply
	assert.Equal(t, "**bold** and *italic*\nnext line", ctrl.Snapshot().Turns[1].Content)
}

func TestSendMessageFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply func(chatapi.Request) (*chatapi.Response, error)
	}{
		{"status error", func(chatapi.Request) (*chatapi.Response, error) {
			return &chatapi.Response{Status: "error", Error: "boom"}, nil
		}},
		{"status missing", func(chatapi.Request) (*chatapi.Response, error) {
			reply := "hi"
			return &chatapi.Response{Response: &reply}, nil
		}},
		{"success without reply", func(chatapi.Request) (*chatapi.Response, error) {
			return &chatapi.Response{Status: chatapi.StatusSuccess, SessionID: "ignored"}, nil
		}},
		{"transport error", func(chatapi.Request) (*chatapi.Response, error) {
			return nil, errors.New("connection refused")
		}},
		{"nil response", func(chatapi.Request) (*chatapi.Response, error) {
			return nil, nil
		}},
		{"panic", func(chatapi.Request) (*chatapi.Response, error) {
			panic("boom")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, rec := newTestController(&fakeSender{reply: tt.reply})
			ctrl.Toggle()
			session := ctrl.Snapshot().SessionID

			require.True(t, ctrl.SendMessage(context.Background(), "hello"))

			state := ctrl.Snapshot()
			assert.Empty(t, state.Turns)
			assert.Equal(t, session, state.SessionID)
			assert.False(t, state.InFlight)

			events := rec.Events()
			assert.Equal(t, 1, rec.Count(EventUserMessage))
			assert.Equal(t, 1, rec.Count(EventHideThinking))
			assert.Equal(t, 1, rec.Count(EventFocusInput))

			var fallback Event
			for _, e := range events {
				if e.Kind == EventAssistantMessage {
					fallback = e
				}
			}
			assert.Equal(t, DefaultFallbackMessage, fallback.Raw)

			last := events[len(events)-2:]
			assert.Equal(t, Event{Kind: EventControls, Text: "true"}, last[0])
			assert.Equal(t, EventFocusInput, last[1].Kind)
		})
	}
}

func TestSuccessBodyWithoutReplyFallsBack(t *testing.T) {
	bodies := map[string]string{
		"missing": `{"status":"success","session_id":"srv"}`,
		"null":    `{"status":"success","response":null,"session_id":"srv"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer backend.Close()

			ctrl, rec := newTestController(chatapi.NewClient(backend.URL, 0))
			require.True(t, ctrl.SendMessage(context.Background(), "hello"))

			state := ctrl.Snapshot()
			assert.Empty(t, state.Turns)
			assert.Empty(t, state.SessionID)

			events := rec.Events()
			var last Event
			for _, e := range events {
				if e.Kind == EventAssistantMessage {
					last = e
				}
			}
			assert.Equal(t, DefaultFallbackMessage, last.Raw)
		})
	}
}

func TestFallbackMessageOption(t *testing.T) {
	sender := &fakeSender{reply: func(chatapi.Request) (*chatapi.Response, error) {
		return nil, errors.New("down")
	}}
	rec := NewRecorder(nil)
	ctrl := New(sender, WithView(rec), WithLogger(zerolog.Nop()), WithFallbackMessage("Write to help@example.com."))

	ctrl.SendMessage(context.Background(), "hello")
	assert.Contains(t, rec.Events(), Event{Kind: EventAssistantMessage, Text: "Write to help@example.com.", Raw: "Write to help@example.com."})
}

func TestEmptyMessagesAreIgnored(t *testing.T) {
	sender := succeedWith("hi", "")
	ctrl, rec := newTestController(sender)

	for _, text := range []string{"", "   ", "\n\t"} {
		assert.False(t, ctrl.SendMessage(context.Background(), text))
		assert.False(t, ctrl.SendQuickReply(context.Background(), text))
	}
	assert.Empty(t, sender.calls())
	assert.Empty(t, rec.Events())
	assert.False(t, ctrl.Snapshot().QuickRepliesHidden)
}

func TestSubmitWhileInFlightIsRejected(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	sender := &fakeSender{reply: func(chatapi.Request) (*chatapi.Response, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return chatapi.Success("done", ""), nil
	}}
	ctrl, rec := newTestController(sender)

	done := make(chan bool)
	go func() { done <- ctrl.SendMessage(context.Background(), "first") }()

	require.Eventually(t, func() bool { return ctrl.Snapshot().InFlight }, time.Second, time.Millisecond)

	assert.False(t, ctrl.SendMessage(context.Background(), "second"))
	assert.False(t, ctrl.SendQuickReply(context.Background(), "What do you offer?"))
	assert.False(t, ctrl.HandleKey(context.Background(), "Enter", "third"))
	assert.False(t, ctrl.Snapshot().QuickRepliesHidden)

	close(release)
	require.True(t, <-done)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, rec.Count(EventUserMessage))
	assert.Equal(t, 2, rec.Count(EventControls))
	assert.Len(t, ctrl.Snapshot().Turns, 2)

	// back to Idle: the next submission goes through
	assert.True(t, ctrl.SendMessage(context.Background(), "again"))
}

func TestQuickReplyHidesGroupPermanently(t *testing.T) {
	ctrl, rec := newTestController(succeedWith("sure", ""))
	ctrl.Toggle()

	require.True(t, ctrl.SendQuickReply(context.Background(), "What do you offer?"))
	assert.True(t, ctrl.Snapshot().QuickRepliesHidden)

	require.True(t, ctrl.SendMessage(context.Background(), "more"))
	require.True(t, ctrl.SendQuickReply(context.Background(), "Set a tune-up call?"))
	ctrl.Toggle()
	ctrl.Toggle()

	assert.True(t, ctrl.Snapshot().QuickRepliesHidden)
	assert.Equal(t, 1, rec.Count(EventHideQuickReplies))
	// quick replies never touch the text input
	assert.Equal(t, 1, rec.Count(EventClearInput))
	assert.Len(t, ctrl.Snapshot().Turns, 6)
}

func TestQuickReplyFailureStillHidesGroup(t *testing.T) {
	sender := &fakeSender{reply: func(chatapi.Request) (*chatapi.Response, error) {
		return nil, errors.New("offline")
	}}
	ctrl, rec := newTestController(sender)

	require.True(t, ctrl.SendQuickReply(context.Background(), "What do you offer?"))
	assert.True(t, ctrl.Snapshot().QuickRepliesHidden)
	assert.Equal(t, 1, rec.Count(EventHideQuickReplies))
	assert.Empty(t, ctrl.Snapshot().Turns)
}

func TestHandleKey(t *testing.T) {
	sender := succeedWith("ok", "")
	ctrl, _ := newTestController(sender)

	assert.False(t, ctrl.HandleKey(context.Background(), "a", "hello"))
	assert.False(t, ctrl.HandleKey(context.Background(), "Shift", "hello"))
	assert.Empty(t, sender.calls())

	assert.True(t, ctrl.HandleKey(context.Background(), "Enter", "hello"))
	assert.True(t, ctrl.HandleKey(context.Background(), "enter", "again"))
	assert.Len(t, sender.calls(), 2)
}

func TestIndependentInstances(t *testing.T) {
	a, _ := newTestController(succeedWith("a", "session-a"))
	b, _ := newTestController(succeedWith("b", ""))

	a.Toggle()
	require.True(t, a.SendMessage(context.Background(), "hi"))

	assert.Equal(t, "session-a", a.Snapshot().SessionID)
	assert.Len(t, a.Snapshot().Turns, 2)
	assert.Empty(t, b.Snapshot().SessionID)
	assert.Empty(t, b.Snapshot().Turns)
	assert.False(t, b.Snapshot().Visible)
}
