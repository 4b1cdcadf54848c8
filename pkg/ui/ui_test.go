package ui

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/partygpt/pkg/chat"
	"github.com/go-go-golems/partygpt/pkg/speech"
)

type fakeControl struct {
	mu        sync.Mutex
	submitted []string
	interacts int
	closes    int
	toggles   int
}

func (f *fakeControl) Submit(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(text) == "" {
		return false
	}
	f.submitted = append(f.submitted, text)
	return true
}

func (f *fakeControl) Interact() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interacts++
}

func (f *fakeControl) RequestClose() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return true
}

func (f *fakeControl) ToggleRecording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	return f.toggles%2 == 0
}

type fakeSpeech struct {
	caps    speech.Capabilities
	clicked []string
	stops   int
	modes   int
}

func (f *fakeSpeech) Capabilities() speech.Capabilities { return f.caps }
func (f *fakeSpeech) Click(m chat.Message) bool {
	f.clicked = append(f.clicked, m.Text)
	return true
}
func (f *fakeSpeech) Stop() { f.stops++ }
func (f *fakeSpeech) ToggleMode() speech.Mode {
	f.modes++
	return speech.ModeSpeak
}
func (f *fakeSpeech) SetRecognitionLanguage(string) {}
func (f *fakeSpeech) Listen() error                 { return nil }

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm
}

func deliver(t *testing.T, m Model, b *Bridge) Model {
	t.Helper()
	msg := b.Wait()()
	batch, ok := msg.(bridgeBatchMsg)
	require.True(t, ok)
	return update(t, m, batch)
}

func typeText(t *testing.T, m Model, text string) Model {
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestBridgeKeepsOrderAndNeverBlocks(t *testing.T) {
	b := NewBridge()
	for i := 0; i < 1000; i++ {
		b.AppendMessage(chat.NewMessage(chat.SenderUser, "m"))
	}
	b.ClearTranscript()

	msg := b.Wait()()
	batch, ok := msg.(bridgeBatchMsg)
	require.True(t, ok)
	require.Len(t, batch, 1001)
	require.IsType(t, clearTranscriptMsg{}, batch[1000])

	b.Close()
	b.FocusInput()
	require.Nil(t, b.Wait()())
}

func TestEnterSubmitsAndKeysCountAsInteraction(t *testing.T) {
	b := NewBridge()
	ctrl := &fakeControl{}
	m := NewModel(b, ctrl, nil)

	m = typeText(t, m, "hello")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, []string{"hello"}, ctrl.submitted)
	require.Equal(t, 2, ctrl.interacts)

	m = update(t, m, tea.MouseMsg{})
	require.Equal(t, 3, ctrl.interacts)
}

func TestAltEnterInsertsNewline(t *testing.T) {
	ctrl := &fakeControl{}
	m := NewModel(NewBridge(), ctrl, nil)

	m = typeText(t, m, "line one")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	m = typeText(t, m, "line two")
	require.Equal(t, "line one\nline two", m.input.Value())
	require.Empty(t, ctrl.submitted)
}

func TestControllerUpdatesReachModel(t *testing.T) {
	b := NewBridge()
	ctrl := &fakeControl{}
	m := NewModel(b, ctrl, nil)

	user := chat.NewMessage(chat.SenderUser, "hi")
	b.AppendMessage(user)
	b.ClearInput()
	b.SetInputEnabled(false)
	b.SetSessionControlsVisible(false)
	b.SetNewSessionHintVisible(true)
	b.SetRecordingStatus("This conversation will not be recorded.", false)
	m = deliver(t, m, b)

	require.Len(t, m.messages, 1)
	require.False(t, m.inputEnabled)
	require.False(t, m.controlsVisible)
	require.True(t, m.hintVisible)
	require.False(t, m.recording)
	require.Contains(t, m.View(), "You: hi")
	require.Contains(t, m.View(), "A new session will start soon")

	// disabled input swallows typing and enter
	m = typeText(t, m, "ignored")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Empty(t, ctrl.submitted)
	require.Empty(t, m.input.Value())

	// hidden controls ignore close and record keys
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.Equal(t, 0, ctrl.closes)
	require.Equal(t, 0, ctrl.toggles)

	b.ClearTranscript()
	b.SetNewSessionHintVisible(false)
	b.SetInputEnabled(true)
	b.FocusInput()
	b.SetSessionControlsVisible(true)
	m = deliver(t, m, b)
	require.Empty(t, m.messages)
	require.True(t, m.inputEnabled)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.Equal(t, 1, ctrl.closes)
	require.Equal(t, 1, ctrl.toggles)
	require.Contains(t, m.statusLine(), "Enable recording")
}

func TestSelectionAndSpeechKeys(t *testing.T) {
	b := NewBridge()
	sp := &fakeSpeech{caps: speech.Capabilities{CanSpeak: true}}
	m := NewModel(b, &fakeControl{}, sp)

	b.AppendMessage(chat.NewMessage(chat.SenderUser, "question"))
	b.AppendMessage(chat.NewMessage(chat.SenderAssistant, "answer"))
	m = deliver(t, m, b)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp, Alt: true})
	require.Equal(t, 1, m.selected)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp, Alt: true})
	require.Equal(t, 0, m.selected)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	// the user's own message is never read aloud
	require.Equal(t, []string{"answer"}, sp.clicked)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlK})
	require.Equal(t, 1, sp.stops)

	// no recognizer: no mode toggle and the language picker stays closed
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	require.Equal(t, 0, sp.modes)
	require.NotContains(t, m.statusLine(), "ctrl+t")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	require.Nil(t, m.languageForm)
	require.NotContains(t, m.statusLine(), "ctrl+o")
	require.Contains(t, m.statusLine(), "ctrl+p: speak")
}

func TestModeToggleNeedsRecognizer(t *testing.T) {
	b := NewBridge()
	sp := &fakeSpeech{caps: speech.Capabilities{CanListen: true}}
	m := NewModel(b, &fakeControl{}, sp)

	require.Contains(t, m.statusLine(), "ctrl+t")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	require.Equal(t, 1, sp.modes)

	// no synthesizer: replies cannot be clicked
	b.AppendMessage(chat.NewMessage(chat.SenderAssistant, "answer"))
	m = deliver(t, m, b)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp, Alt: true})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	require.Empty(t, sp.clicked)
	require.NotContains(t, m.statusLine(), "ctrl+p")
}

func TestLineViewAndRunLines(t *testing.T) {
	var out bytes.Buffer
	v := NewLineView(&out)
	v.AppendMessage(chat.NewMessage(chat.SenderUser, "typed"))
	v.AppendMessage(chat.NewMessage(chat.SenderAssistant, "Hello!"))
	v.SetRecordingStatus("This conversation will be recorded.", true)
	v.SetNewSessionHintVisible(true)
	v.ClearTranscript()
	require.Equal(t, "AI: Hello!\n[This conversation will be recorded.]\nA new session will start soon…\n--- new session ---\n", out.String())

	ctrl := &fakeControl{}
	in := strings.NewReader("hi there\n:record\n\n:close\n:quit\nnever sent\n")
	require.NoError(t, RunLines(context.Background(), in, ctrl))
	require.Equal(t, []string{"hi there"}, ctrl.submitted)
	require.Equal(t, 1, ctrl.toggles)
	require.Equal(t, 1, ctrl.closes)
	require.Equal(t, 5, ctrl.interacts)
}
