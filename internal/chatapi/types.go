package chatapi

import "chat-widget/internal/history"

// StatusSuccess is the only status value treated as a successful reply
const StatusSuccess = "success"

// Request is the body POSTed to /api/chat
type Request struct {
	Message             string         `json:"message"`
	ConversationHistory []history.Turn `json:"conversation_history"`
	SessionID           *string        `json:"session_id"` // null until a session exists
}

// Response is the body returned by /api/chat. Response is nil when the
// body has no reply text or carries a null one.
type Response struct {
	Status    string  `json:"status"`
	Response  *string `json:"response,omitempty"`
	SessionID string  `json:"session_id,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Success builds a successful response carrying reply
func Success(reply, sessionID string) *Response {
	return &Response{Status: StatusSuccess, Response: &reply, SessionID: sessionID}
}

// Succeeded reports whether the backend flagged the reply as successful
// and actually sent reply text. Any other shape is a failure.
func (r *Response) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess && r.Response != nil
}

// Reply returns the reply text, or "" when there is none
func (r *Response) Reply() string {
	if r == nil || r.Response == nil {
		return ""
	}
	return *r.Response
}
