package enum

type ChatRole string

const (
	ChatRoleUser      ChatRole = "USER"
	ChatRoleAssistant ChatRole = "ASSISTANT"
	ChatRoleSystem    ChatRole = "SYSTEM"
)

func (r ChatRole) String() string {
	return string(r)
}

// PromptLabel is the speaker prefix used when rendering history for the oracle.
func (r ChatRole) PromptLabel() string {
	switch r {
	case ChatRoleUser:
		return "User"
	case ChatRoleSystem:
		return "System"
	default:
		return "Assistant"
	}
}
