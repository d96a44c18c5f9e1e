package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is the canonical conversation message. Values are immutable once
// created; ordering within a conversation is significant.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }
func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }

// Normalize coerces heterogeneous message representations into a canonical
// Message. There is no error path: unrecognised shapes degrade to a system
// message wrapping the value's string form, so downstream stages never
// observe a non-canonical message.
func Normalize(raw any) Message {
	switch m := raw.(type) {
	case Message:
		return m
	case *Message:
		if m != nil {
			return *m
		}
		return System("")
	case string:
		return User(m)
	case map[string]any:
		return normalizeMap(m)
	case map[string]string:
		generic := make(map[string]any, len(m))
		for k, v := range m {
			generic[k] = v
		}
		return normalizeMap(generic)
	default:
		return System(fmt.Sprint(raw))
	}
}

func normalizeMap(m map[string]any) Message {
	role := stringField(m, "role")
	if role == "" {
		role = stringField(m, "type")
	}

	content, hasContent := m["content"]
	if !hasContent {
		content, hasContent = m["text"]
	}
	text := ""
	if hasContent && content != nil {
		text = fmt.Sprint(content)
	}

	switch strings.ToLower(role) {
	case "user", "human":
		return User(text)
	case "assistant", "ai":
		return Assistant(text)
	default:
		if text == "" {
			if b, err := json.Marshal(m); err == nil {
				text = string(b)
			}
		}
		return System(text)
	}
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	return s
}
