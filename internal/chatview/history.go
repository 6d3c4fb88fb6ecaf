package chatview

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/2207231/chatbot/internal/model/chat"
)

// HistoryKey is the storage key holding the JSON array of saved sessions.
const HistoryKey = "chatHistory"

// loadHistory reads saved sessions. Unreadable history starts empty.
func (v *View) loadHistory() []chat.Session {
	raw, ok, err := v.storage.GetItem(HistoryKey)
	if err != nil {
		v.logger.Warn("failed to read chat history", zap.Error(err))
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var sessions []chat.Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		v.logger.Warn("discarding unreadable chat history", zap.Error(err))
		return nil
	}
	return sessions
}

func (v *View) saveAndReportLocked() {
	if err := v.saveLocked(); err != nil {
		v.logger.Warn("failed to save chat session", zap.String("session_id", v.sessionID), zap.Error(err))
	}
}

// saveLocked upserts the current conversation into the history: a new
// session goes to the front, a known one is replaced and moved to the front.
func (v *View) saveLocked() error {
	if len(v.messages) == 0 {
		return nil
	}
	if v.sessionID == "" {
		v.sessionID = uuid.NewString()
	}

	session := chat.Session{
		ID:          v.sessionID,
		Title:       chat.Title(v.messages),
		Messages:    chat.CloneMessages(v.messages),
		LastUpdated: v.now(),
	}

	updated := make([]chat.Session, 0, len(v.sessions)+1)
	updated = append(updated, session)
	for _, s := range v.sessions {
		if s.ID != session.ID {
			updated = append(updated, s)
		}
	}
	v.sessions = updated

	return v.persistLocked()
}

// persistLocked rewrites the whole history under HistoryKey.
func (v *View) persistLocked() error {
	data, err := json.Marshal(v.sessions)
	if err != nil {
		v.storeErr = fmt.Errorf("failed to encode chat history: %w", err)
		return v.storeErr
	}
	if err := v.storage.SetItem(HistoryKey, string(data)); err != nil {
		v.storeErr = fmt.Errorf("failed to write chat history: %w", err)
		return v.storeErr
	}
	v.storeErr = nil
	return nil
}

func cloneSessions(sessions []chat.Session) []chat.Session {
	if sessions == nil {
		return nil
	}
	copied := make([]chat.Session, len(sessions))
	for i, s := range sessions {
		s.Messages = chat.CloneMessages(s.Messages)
		copied[i] = s
	}
	return copied
}
