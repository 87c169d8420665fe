package llm

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ConversationTurn is one message in a conversation. A session's history is
// an append-only sequence of turns.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewTurn creates a turn with the given role and content.
func NewTurn(role Role, content string) ConversationTurn {
	return ConversationTurn{Role: role, Content: content}
}

// SplitSystem separates system turns from the rest of the conversation, for
// providers that take the system prompt out of band. Multiple system turns
// are joined with blank lines.
func SplitSystem(turns []ConversationTurn) (string, []ConversationTurn) {
	var system string
	rest := make([]ConversationTurn, 0, len(turns))
	for _, t := range turns {
		if t.Role != RoleSystem {
			rest = append(rest, t)
			continue
		}
		if system != "" {
			system += "\n\n"
		}
		system += t.Content
	}
	return system, rest
}
