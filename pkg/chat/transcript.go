package chat

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrUnknownSender is returned when appending a message whose sender is neither user nor assistant.
var ErrUnknownSender = errors.New("unknown message sender")

// Transcript is the ordered, append-only message sequence of one session.
// Clear is the only way entries leave it.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Append(m Message) error {
	if !m.Sender.Valid() {
		return errors.Wrapf(ErrUnknownSender, "sender %q", m.Sender)
	}
	t.mu.Lock()
	t.messages = append(t.messages, m)
	t.mu.Unlock()
	return nil
}

// Messages returns a copy of the current entries.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Message(nil), t.messages...)
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

func (t *Transcript) Get(id string) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, m := range t.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

func (t *Transcript) Clear() {
	t.mu.Lock()
	t.messages = nil
	t.mu.Unlock()
}
