package core

const (
	RoleUser      = "user"
	RoleSystem    = "system"
	RoleAssistant = "assistant"
)

// Message is one entry in the ordered sequence sent to the completion
// endpoint. Immutable once constructed.
type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
}

// CollapseMessages merges runs of adjacent same-role messages into one,
// joining their content with a blank line. The upstream API mishandles
// repeated-role sequences, so duplicates must never be sent as discrete
// entries. Names are dropped from the collapsed payload.
func CollapseMessages(messages []Message) []Message {
	if len(messages) == 0 {
		return nil
	}

	collapsed := []Message{{Role: messages[0].Role, Content: messages[0].Content}}
	for _, msg := range messages[1:] {
		last := &collapsed[len(collapsed)-1]
		if last.Role == msg.Role {
			last.Content += "\n\n" + msg.Content
		} else {
			collapsed = append(collapsed, Message{Role: msg.Role, Content: msg.Content})
		}
	}
	return collapsed
}
