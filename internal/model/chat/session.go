package chat

import "time"

// TitleMaxRunes bounds the prefix of the first message used as a session title.
const TitleMaxRunes = 30

// Session is a saved conversation kept in client-local storage.
type Session struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Messages    []Message `json:"messages"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Title derives a session title from the first message of a conversation:
// at most TitleMaxRunes runes of its content followed by "...".
func Title(messages []Message) string {
	if len(messages) == 0 {
		return "..."
	}

	runes := []rune(messages[0].Content)
	if len(runes) > TitleMaxRunes {
		runes = runes[:TitleMaxRunes]
	}
	return string(runes) + "..."
}

// CloneMessages returns a copy that shares nothing with the input slice.
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	copied := make([]Message, len(messages))
	copy(copied, messages)
	return copied
}
