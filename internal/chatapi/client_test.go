package chatapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/history"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 0)
}

func TestChatSendsContract(t *testing.T) {
	var got map[string]any
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &got))

		_, _ = w.Write([]byte(`{"status":"success","response":"hi","session_id":"abc"}`))
	})

	session := "session_1_abc"
	resp, err := client.Chat(context.Background(), Request{
		Message: "hello",
		ConversationHistory: []history.Turn{
			{Role: history.RoleUser, Content: "q"},
			{Role: history.RoleAssistant, Content: "a"},
		},
		SessionID: &session,
	})
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.Equal(t, "hi", resp.Reply())
	assert.Equal(t, "abc", resp.SessionID)

	assert.Equal(t, "hello", got["message"])
	assert.Equal(t, "session_1_abc", got["session_id"])
	turns := got["conversation_history"].([]any)
	require.Len(t, turns, 2)
	assert.Equal(t, map[string]any{"role": "user", "content": "q"}, turns[0])
}

func TestChatEncodesEmptyHistoryAndNullSession(t *testing.T) {
	var raw string
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		raw = string(body)
		_, _ = w.Write([]byte(`{"status":"success","response":"ok"}`))
	})

	_, err := client.Chat(context.Background(), Request{Message: "hello"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"hello","conversation_history":[],"session_id":null}`, raw)
}

func TestChatNonSuccessBodies(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"error status field", http.StatusOK, `{"status":"error","error":"boom"}`},
		{"missing status", http.StatusOK, `{"response":"hi"}`},
		{"server error body", http.StatusInternalServerError, `{"status":"error","error":"agent failed"}`},
		{"success without reply", http.StatusOK, `{"status":"success"}`},
		{"success with null reply", http.StatusOK, `{"status":"success","response":null,"session_id":"abc"}`},
		{"json null", http.StatusOK, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := client.Chat(context.Background(), Request{Message: "x"})
			require.NoError(t, err)
			assert.False(t, resp.Succeeded())
		})
	}
}

func TestChatSuccessBodyOnErrorStatus(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"success","response":"hi","session_id":"abc"}`))
	})

	// only the body decides; the HTTP status is informational
	resp, err := client.Chat(context.Background(), Request{Message: "x"})
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.Equal(t, "hi", resp.Reply())
	assert.Equal(t, "abc", resp.SessionID)
	assert.Equal(t, "chat service returned status 500", resp.Error)
}

func TestChatEmptyReplyIsStillAReply(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","response":""}`))
	})

	resp, err := client.Chat(context.Background(), Request{Message: "x"})
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.Equal(t, "", resp.Reply())
}

func TestChatMalformedBody(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	resp, err := client.Chat(context.Background(), Request{Message: "x"})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestChatTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := NewClient(srv.URL, 0)
	srv.Close()

	_, err := client.Chat(context.Background(), Request{Message: "x"})
	require.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	healthy := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	require.NoError(t, healthy.HealthCheck(context.Background()))

	sick := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	err := sick.HealthCheck(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnhealthy))
}

func TestSucceededNilSafe(t *testing.T) {
	var r *Response
	assert.False(t, r.Succeeded())
	assert.Equal(t, "", r.Reply())

	assert.True(t, Success("ok", "").Succeeded())
	assert.False(t, (&Response{Status: StatusSuccess}).Succeeded())
}
