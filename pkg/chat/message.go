package chat

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

func (s Sender) Valid() bool {
	switch s {
	case SenderUser, SenderAssistant:
		return true
	default:
		return false
	}
}

// Message is a single immutable transcript entry.
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Text      string    `json:"text" yaml:"text"`
	Sender    Sender    `json:"sender" yaml:"sender"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func NewMessage(sender Sender, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		CreatedAt: time.Now(),
	}
}

// Prefix is the label shown in front of the message text.
func (m Message) Prefix() string {
	switch m.Sender {
	case SenderUser:
		return "You"
	case SenderAssistant:
		return "AI"
	default:
		return "?"
	}
}
