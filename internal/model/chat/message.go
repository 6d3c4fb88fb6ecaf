package chat

import (
	"strings"

	"github.com/google/uuid"
)

// Role 标识消息的发送方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether the role is accepted by the completion proxy.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Kind separates real conversation turns from locally produced error notes.
type Kind string

const (
	KindText  Kind = "text"
	KindError Kind = "error"
)

// Message is a single conversation turn. The assistant message is created
// empty and filled in while its reply is revealed.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Kind    Kind   `json:"kind,omitempty"`
}

// NewMessage builds a text message with a fresh identifier.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
		Kind:    KindText,
	}
}

// NewErrorMessage builds the assistant-authored note shown when a turn fails.
func NewErrorMessage(content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    RoleAssistant,
		Content: content,
		Kind:    KindError,
	}
}

// IsError reports whether the message is a local error note.
func (m Message) IsError() bool {
	return m.Kind == KindError
}

// Turn is the wire shape of a message sent to the completion proxy.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turns converts messages into the proxy payload. Error notes and blank
// messages never leave the client.
func Turns(messages []Message) []Turn {
	turns := make([]Turn, 0, len(messages))
	for _, msg := range messages {
		if msg.IsError() || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		turns = append(turns, Turn{Role: msg.Role, Content: msg.Content})
	}
	return turns
}
