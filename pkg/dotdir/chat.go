package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	chatFile = "chat.json"
)

// ChatState is the persisted state of the last "ragloop chat" session.
type ChatState struct {
	// SessionID tags every exchange of the conversation.
	SessionID string `json:"session_id"`

	// Messages is the local transcript in chronological order.
	Messages []ChatMessage `json:"messages"`
}

// ChatMessage is a single turn of the local transcript.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LoadChatState loads the chat state from a target .ragloop/chat.json.
// Returns nil, nil if no chat state exists.
func (m *Manager) LoadChatState(overrideDir string) (*ChatState, error) {
	data, err := m.ReadFile(overrideDir, chatFile)
	if err != nil || data == nil {
		return nil, err
	}

	state := &ChatState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing chat state: %w", err)
	}
	return state, nil
}

// SaveChatState persists the chat state to a target .ragloop/chat.json.
func (m *Manager) SaveChatState(state *ChatState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil chat state")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling chat state: %w", err)
	}
	return m.WriteFile(overrideDir, chatFile, data)
}

// ClearChatState removes the chat state file so the next chat starts a new
// session. Returns nil if the file doesn't exist.
func (m *Manager) ClearChatState(overrideDir string) error {
	return m.Remove(overrideDir, chatFile)
}
