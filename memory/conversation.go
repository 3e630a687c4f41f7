package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/biome-agent/internal/notify"
)

const (
	RoleUser         = "user"
	RoleAssistant    = "assistant"
	RoleNotification = "notification"
)

// Message is a minimal persisted view of a chat turn.
// Only text is stored; tool blocks are transient. Notifications delivered to
// the user are kept with the job and topic they came from.
type Message struct {
	Role  string `json:"role"`
	Text  string `json:"text,omitempty"`
	Topic string `json:"topic,omitempty"`
	JobID string `json:"job_id,omitempty"`
}

// FromNotification records n as it was shown to the user.
func FromNotification(n notify.Notification) Message {
	m := Message{Role: RoleNotification, Text: notify.Render(n.Payload), Topic: n.Topic}
	if id, ok := n.Payload["job_id"].(string); ok {
		m.JobID = id
	}
	return m
}

// ToMessageParams rebuilds the model conversation from a transcript.
// Notifications are replayed as user-side context so the model sees job results.
func ToMessageParams(msgs []Message) []anthropic.MessageParam {
	conv := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleAssistant:
			conv = append(conv, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Text)))
		case RoleNotification:
			conv = append(conv, anthropic.NewUserMessage(anthropic.NewTextBlock(NotificationText(m))))
		default:
			conv = append(conv, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
		}
	}
	return conv
}

// NotificationText is how a delivered notification is presented to the model.
func NotificationText(m Message) string {
	head := "[notification: " + m.Topic
	if m.JobID != "" {
		head += " job " + m.JobID
	}
	return head + "]\n" + m.Text
}

func LoadConversation(path string) ([]Message, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil, fmt.Errorf("memory: decode %s: %w", path, err)
	}
	return msgs, nil
}

func SaveConversation(path string, msgs []Message) error {
	b, err := json.MarshalIndent(msgs, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
