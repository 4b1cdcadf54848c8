package session

import (
	"context"
	"sync"

	"github.com/go-go-golems/partygpt/pkg/chat"
)

type fakeBackend struct {
	mu      sync.Mutex
	reply   *string
	err     error
	release chan struct{}

	inputs []string
	saves  int
	closes int
	flags  []bool
	calls  []string
}

func strPtr(s string) *string { return &s }

func (b *fakeBackend) ProcessInput(ctx context.Context, message string) (*string, error) {
	b.mu.Lock()
	b.inputs = append(b.inputs, message)
	b.calls = append(b.calls, "process-input")
	release := b.release
	reply, err := b.reply, b.err
	b.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return reply, err
}

func (b *fakeBackend) SaveRecords(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves++
	b.calls = append(b.calls, "save-records")
	return nil
}

func (b *fakeBackend) SetRecords(_ context.Context, flag bool) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flags = append(b.flags, flag)
	b.calls = append(b.calls, "set-records")
	if flag {
		return "recording on", nil
	}
	return "recording off", nil
}

func (b *fakeBackend) CloseSession(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	b.calls = append(b.calls, "close-session")
	return nil
}

func (b *fakeBackend) counts() (inputs, saves, closes, flags int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inputs), b.saves, b.closes, len(b.flags)
}

func (b *fakeBackend) closeCount() int {
	_, _, closes, _ := b.counts()
	return closes
}

func (b *fakeBackend) flagValues() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.flags...)
}

func (b *fakeBackend) callLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

type fakeView struct {
	mu              sync.Mutex
	messages        []chat.Message
	inputEnabled    bool
	focusCount      int
	controlsVisible bool
	hintVisible     bool
	status          string
	recording       bool
	inputClears     int
	ops             int
}

func (v *fakeView) AppendMessage(m chat.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ops++
	v.messages = append(v.messages, m)
}

func (v *fakeView) ClearTranscript() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ops++
	v.messages = nil
}

func (v *fakeView) ClearInput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ops++
	v.inputClears++
}

func (v *fakeView) SetInputEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ops++
	v.inputEnabled = enabled
}

func (v *fakeView) FocusInput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ops++
	v.focusCount++
}

func (v *fakeView) SetSessionControlsVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ops++
	v.controlsVisible = visible
}

func (v *fakeView) SetNewSessionHintVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ops++
	v.hintVisible = visible
}

func (v *fakeView) SetRecordingStatus(status string, recording bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ops++
	v.status = status
	v.recording = recording
}

type viewSnapshot struct {
	messages        []string
	inputEnabled    bool
	focusCount      int
	controlsVisible bool
	hintVisible     bool
	ops             int
}

func (v *fakeView) snapshot() viewSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := viewSnapshot{
		inputEnabled:    v.inputEnabled,
		focusCount:      v.focusCount,
		controlsVisible: v.controlsVisible,
		hintVisible:     v.hintVisible,
		ops:             v.ops,
	}
	for _, m := range v.messages {
		s.messages = append(s.messages, m.Text)
	}
	return s
}

type fakeSpeaker struct {
	mu   sync.Mutex
	seen []chat.Message
}

func (s *fakeSpeaker) OnAssistantMessage(m chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, m)
}

func (s *fakeSpeaker) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
