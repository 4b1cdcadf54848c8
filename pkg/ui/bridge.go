package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-go-golems/partygpt/pkg/chat"
	"github.com/go-go-golems/partygpt/pkg/session"
	"github.com/go-go-golems/partygpt/pkg/speech"
)

type (
	appendMessageMsg   struct{ message chat.Message }
	clearTranscriptMsg struct{}
	clearInputMsg      struct{}
	inputEnabledMsg    struct{ enabled bool }
	focusInputMsg      struct{}
	controlsVisibleMsg struct{ visible bool }
	hintVisibleMsg     struct{ visible bool }
	recordingStatusMsg struct {
		status    string
		recording bool
	}
	speechStatusMsg struct{ status speech.Status }

	// bridgeBatchMsg carries every update queued since the last delivery.
	bridgeBatchMsg []tea.Msg
)

// Bridge implements session.View by queueing updates for the Bubble Tea loop.
// Posting never blocks, so the session controller can call it while holding
// its lock even when the UI is busy.
type Bridge struct {
	mu     sync.Mutex
	queue  []tea.Msg
	notify chan struct{}
	closed bool
}

var _ session.View = (*Bridge)(nil)

func NewBridge() *Bridge {
	return &Bridge{notify: make(chan struct{}, 1)}
}

func (b *Bridge) post(msg tea.Msg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.queue = append(b.queue, msg)
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Wait returns a command that delivers the next batch of queued updates.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-b.notify; !ok {
			return nil
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		batch := bridgeBatchMsg(b.queue)
		b.queue = nil
		return batch
	}
}

// Close stops delivery; later updates are dropped.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.notify)
}

func (b *Bridge) AppendMessage(m chat.Message) { b.post(appendMessageMsg{message: m}) }
func (b *Bridge) ClearTranscript()             { b.post(clearTranscriptMsg{}) }
func (b *Bridge) ClearInput()                  { b.post(clearInputMsg{}) }
func (b *Bridge) SetInputEnabled(enabled bool) { b.post(inputEnabledMsg{enabled: enabled}) }
func (b *Bridge) FocusInput()                  { b.post(focusInputMsg{}) }

func (b *Bridge) SetSessionControlsVisible(visible bool) {
	b.post(controlsVisibleMsg{visible: visible})
}

func (b *Bridge) SetNewSessionHintVisible(visible bool) {
	b.post(hintVisibleMsg{visible: visible})
}

func (b *Bridge) SetRecordingStatus(status string, recording bool) {
	b.post(recordingStatusMsg{status: status, recording: recording})
}

// PostSpeechStatus is registered as the speech adapter's status listener.
func (b *Bridge) PostSpeechStatus(st speech.Status) {
	b.post(speechStatusMsg{status: st})
}
