// ABOUTME: Message is the role-tagged unit exchanged with the completion service
// ABOUTME: Every memory tier is exposed as an ordered slice of Messages
package models

// Roles understood by the completion service
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	// RoleAdmin tags global annotation log entries; it is not a completion role
	RoleAdmin = "admin"
)

// Message represents one chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// IsCompletionRole reports whether role may be sent to the completion service
func IsCompletionRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// LastN returns the most recent n messages of msgs
func LastN(msgs []Message, n int) []Message {
	if n <= 0 {
		return []Message{}
	}
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
