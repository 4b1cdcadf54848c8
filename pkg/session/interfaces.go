package session

import (
	"context"

	"github.com/go-go-golems/partygpt/pkg/chat"
)

// Backend is the remote side of a chat session.
type Backend interface {
	// ProcessInput returns the assistant reply, or nil when the backend has nothing to say.
	ProcessInput(ctx context.Context, message string) (*string, error)
	SaveRecords(ctx context.Context) error
	// SetRecords returns a human readable status for the new recording flag.
	SetRecords(ctx context.Context, flag bool) (string, error)
	CloseSession(ctx context.Context) error
}

// View is what the controller drives on screen. Implementations must not block
// for long; the controller calls them while holding its lock.
type View interface {
	AppendMessage(m chat.Message)
	ClearTranscript()
	ClearInput()
	SetInputEnabled(enabled bool)
	FocusInput()
	SetSessionControlsVisible(visible bool)
	SetNewSessionHintVisible(visible bool)
	SetRecordingStatus(status string, recording bool)
}

// Speaker is notified about every assistant message that reaches the transcript.
type Speaker interface {
	OnAssistantMessage(m chat.Message)
}
