package speech

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/partygpt/pkg/chat"
)

// fakeSynth plays until cancelled, or until finish is closed when set.
type fakeSynth struct {
	mu      sync.Mutex
	spoken  []Utterance
	active  int
	finish  chan struct{}
	started chan string
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{started: make(chan string, 16)}
}

func (s *fakeSynth) Speak(ctx context.Context, u Utterance) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, u)
	s.active++
	finish := s.finish
	s.mu.Unlock()
	s.started <- u.Text
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-finish:
		return nil
	}
}

func (s *fakeSynth) utterances() []Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Utterance(nil), s.spoken...)
}

func (s *fakeSynth) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

type fakeRecognizer struct {
	mu         sync.Mutex
	transcript string
	langs      []string
	block      bool
}

func (r *fakeRecognizer) Listen(ctx context.Context, locale string) (string, error) {
	r.mu.Lock()
	r.langs = append(r.langs, locale)
	block, text := r.block, r.transcript
	r.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return text, nil
}

func (r *fakeRecognizer) languages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.langs...)
}

type fixedDetector string

func (d fixedDetector) DetectLanguage(string) (string, bool) {
	if d == "" {
		return "", false
	}
	return string(d), true
}

func waitStarted(t *testing.T, s *fakeSynth, want string) {
	t.Helper()
	select {
	case got := <-s.started:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("utterance %q did not start", want)
	}
}

func newTestAdapter(t *testing.T, synth Synthesizer, rec Recognizer, submit SubmitFunc, opts ...AdapterOption) *Adapter {
	t.Helper()
	caps := Capabilities{Synthesizer: synth, Recognizer: rec, CanSpeak: synth != nil, CanListen: rec != nil}
	a := NewAdapter(context.Background(), caps, submit, opts...)
	t.Cleanup(a.Close)
	return a
}

func TestClickSpeakingMessageStopsIt(t *testing.T) {
	synth := newFakeSynth()
	a := newTestAdapter(t, synth, nil, nil, WithDetector(fixedDetector("deu")))
	m := chat.NewMessage(chat.SenderAssistant, "Hallo zusammen")

	require.True(t, a.Click(m))
	waitStarted(t, synth, "Hallo zusammen")
	id, ok := a.Speaking()
	require.True(t, ok)
	require.Equal(t, m.ID, id)

	require.False(t, a.Click(m))
	require.Eventually(t, func() bool { return synth.activeCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok = a.Speaking()
	require.False(t, ok)
	require.Len(t, synth.utterances(), 1)
	require.Equal(t, "de", synth.utterances()[0].Locale)
	require.InDelta(t, 1.3, synth.utterances()[0].Rate, 0.0001)
}

func TestClickWhileSpeakingCancelsInsteadOfStarting(t *testing.T) {
	synth := newFakeSynth()
	a := newTestAdapter(t, synth, nil, nil)
	first := chat.NewMessage(chat.SenderAssistant, "first")
	second := chat.NewMessage(chat.SenderAssistant, "second")

	require.True(t, a.Click(first))
	waitStarted(t, synth, "first")
	require.False(t, a.Click(second))

	require.Eventually(t, func() bool { return synth.activeCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := a.Speaking()
	require.False(t, ok)
	require.Len(t, synth.utterances(), 1)

	// the next click plays again
	require.True(t, a.Click(second))
	waitStarted(t, synth, "second")
}

func TestNewReplySupersedesCurrentUtterance(t *testing.T) {
	synth := newFakeSynth()
	a := newTestAdapter(t, synth, nil, nil, WithMode(ModeSpeak))
	first := chat.NewMessage(chat.SenderAssistant, "first")
	second := chat.NewMessage(chat.SenderAssistant, "second")

	a.OnAssistantMessage(first)
	waitStarted(t, synth, "first")
	a.OnAssistantMessage(second)
	waitStarted(t, synth, "second")

	id, ok := a.Speaking()
	require.True(t, ok)
	require.Equal(t, second.ID, id)
	require.Eventually(t, func() bool { return synth.activeCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestFinishedUtteranceClearsSpeaking(t *testing.T) {
	synth := newFakeSynth()
	synth.finish = make(chan struct{})
	close(synth.finish)
	a := newTestAdapter(t, synth, nil, nil)

	require.True(t, a.Click(chat.NewMessage(chat.SenderAssistant, "short")))
	require.Eventually(t, func() bool {
		_, ok := a.Speaking()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestAutoSpeakOnlyInSpeakMode(t *testing.T) {
	synth := newFakeSynth()
	a := newTestAdapter(t, synth, nil, nil)

	a.OnAssistantMessage(chat.NewMessage(chat.SenderAssistant, "quiet"))
	require.Empty(t, synth.utterances())

	require.Equal(t, ModeSpeak, a.ToggleMode())
	a.OnAssistantMessage(chat.NewMessage(chat.SenderAssistant, "loud"))
	waitStarted(t, synth, "loud")

	a.Stop()
	require.Eventually(t, func() bool { return synth.activeCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestNoSynthesizerNeverSpeaks(t *testing.T) {
	a := NewAdapter(context.Background(), Capabilities{}, nil, WithMode(ModeSpeak))
	defer a.Close()

	a.OnAssistantMessage(chat.NewMessage(chat.SenderAssistant, "hello"))
	require.False(t, a.Click(chat.NewMessage(chat.SenderAssistant, "hello")))
	require.ErrorIs(t, a.Listen(), ErrUnsupported)
}

func TestSpeakModeSubmitsFirstTranscript(t *testing.T) {
	rec := &fakeRecognizer{transcript: "what time is it"}
	submitted := make(chan string, 2)
	a := newTestAdapter(t, nil, rec, func(text string) bool {
		submitted <- text
		return true
	}, WithRecognitionLanguage("de-DE"))

	require.Equal(t, ModeSpeak, a.ToggleMode())
	select {
	case text := <-submitted:
		require.Equal(t, "what time is it", text)
	case <-time.After(2 * time.Second):
		t.Fatal("transcript not submitted")
	}
	require.Eventually(t, func() bool { return !a.Status().Listening }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"de-DE"}, rec.languages())
	require.Len(t, submitted, 0)
}

func TestLeavingSpeakModeStopsRecognitionAndFocuses(t *testing.T) {
	rec := &fakeRecognizer{block: true}
	focused := 0
	var statuses []Status
	var mu sync.Mutex
	a := newTestAdapter(t, nil, rec, nil,
		WithFocusInput(func() { focused++ }),
		WithStatusListener(func(s Status) {
			mu.Lock()
			statuses = append(statuses, s)
			mu.Unlock()
		}))

	a.ToggleMode()
	require.True(t, a.Status().Listening)

	a.SetRecognitionLanguage("fr-FR")
	require.True(t, a.Status().Listening)
	require.Eventually(t, func() bool { return len(rec.languages()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "fr-FR", rec.languages()[1])

	require.Equal(t, ModeType, a.ToggleMode())
	require.False(t, a.Status().Listening)
	require.Equal(t, 1, focused)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, statuses)
	require.Equal(t, ModeType, statuses[len(statuses)-1].Mode)
}

func TestCloseStopsEverything(t *testing.T) {
	synth := newFakeSynth()
	a := NewAdapter(context.Background(), Capabilities{Synthesizer: synth, CanSpeak: true}, nil)
	require.True(t, a.Click(chat.NewMessage(chat.SenderAssistant, "long story")))
	waitStarted(t, synth, "long story")

	a.Close()
	require.Equal(t, 0, synth.activeCount())
	require.False(t, a.Click(chat.NewMessage(chat.SenderAssistant, "after close")))
}
