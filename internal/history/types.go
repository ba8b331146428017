package history

// Role identifies the speaker of a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn represents a single message in a conversation
type Turn struct {
	Role    Role   `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
