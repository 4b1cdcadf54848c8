package devserver

import (
	"sync"

	"github.com/google/uuid"

	"github.com/go-go-golems/partygpt/pkg/chat"
)

// conversation is the single in-memory session the reference backend serves.
type conversation struct {
	mu        sync.Mutex
	sessionID string
	history   []chat.Message
	recording bool
}

func newConversation() *conversation {
	return &conversation{sessionID: uuid.NewString(), recording: true}
}

func (c *conversation) append(m chat.Message) []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, m)
	return append([]chat.Message(nil), c.history...)
}

func (c *conversation) snapshot() (sessionID string, history []chat.Message, recording bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID, append([]chat.Message(nil), c.history...), c.recording
}

func (c *conversation) setRecording(flag bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recording = flag
}

// reset drops the history and starts a new session id.
func (c *conversation) reset() (previous string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous = c.sessionID
	c.sessionID = uuid.NewString()
	c.history = nil
	c.recording = true
	return previous
}
