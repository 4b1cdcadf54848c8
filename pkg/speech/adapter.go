package speech

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/partygpt/pkg/chat"
)

// Mode selects how the user talks to the assistant.
type Mode int

const (
	ModeType Mode = iota
	ModeSpeak
)

func (m Mode) String() string {
	if m == ModeSpeak {
		return "speak"
	}
	return "type"
}

// Status is a snapshot of the adapter, published on every change.
type Status struct {
	Mode                Mode
	SpeakingMessageID   string
	Listening           bool
	RecognitionLanguage string
}

// SubmitFunc forwards a recognized transcript as if the user had typed it.
type SubmitFunc func(text string) bool

type AdapterOption func(*Adapter)

func WithDetector(d LanguageDetector) AdapterOption {
	return func(a *Adapter) { a.detector = d }
}

func WithRate(rate float64) AdapterOption {
	return func(a *Adapter) {
		if rate > 0 {
			a.rate = rate
		}
	}
}

func WithMode(m Mode) AdapterOption {
	return func(a *Adapter) { a.mode = m }
}

func WithRecognitionLanguage(lang string) AdapterOption {
	return func(a *Adapter) {
		if lang != "" {
			a.recognitionLang = lang
		}
	}
}

// WithStatusListener registers fn to be called after every state change.
func WithStatusListener(fn func(Status)) AdapterOption {
	return func(a *Adapter) { a.onStatus = fn }
}

// WithFocusInput registers what to do when the user switches back to typing.
func WithFocusInput(fn func()) AdapterOption {
	return func(a *Adapter) { a.focusInput = fn }
}

type utterance struct {
	messageID string
	cancel    context.CancelFunc
	done      chan struct{}
}

// Adapter speaks assistant messages and turns speech into submitted text.
// At most one utterance plays at a time; starting another cancels the first.
type Adapter struct {
	mu sync.Mutex

	caps     Capabilities
	detector LanguageDetector
	submit   SubmitFunc
	rate     float64

	mode            Mode
	recognitionLang string
	current         *utterance
	listenCancel    context.CancelFunc
	listenSeq       uint64

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	onStatus   func(Status)
	focusInput func()
	logger     zerolog.Logger
}

func NewAdapter(ctx context.Context, caps Capabilities, submit SubmitFunc, options ...AdapterOption) *Adapter {
	if caps.Synthesizer == nil {
		caps.Synthesizer = noopSynthesizer{}
		caps.CanSpeak = false
	}
	if caps.Recognizer == nil {
		caps.Recognizer = noopRecognizer{}
		caps.CanListen = false
	}
	a := &Adapter{
		caps:            caps,
		detector:        TrigramDetector{},
		submit:          submit,
		rate:            float64(DefaultRatePercent) / 100,
		recognitionLang: DefaultLocale,
		logger:          log.With().Str("component", "speech").Logger(),
	}
	for _, opt := range options {
		opt(a)
	}
	a.baseCtx, a.cancel = context.WithCancel(ctx)
	return a
}

func (a *Adapter) Capabilities() Capabilities {
	return a.caps
}

func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statusLocked()
}

// OnAssistantMessage reads new replies aloud while in speak mode.
func (a *Adapter) OnAssistantMessage(m chat.Message) {
	a.mu.Lock()
	auto := a.mode == ModeSpeak && a.caps.CanSpeak
	a.mu.Unlock()
	if auto {
		a.speak(m)
	}
}

// Click toggles playback. While anything is being spoken a click only cancels
// it, whichever message was clicked. It reports whether m started playing.
func (a *Adapter) Click(m chat.Message) bool {
	a.mu.Lock()
	if a.current != nil {
		a.stopLocked()
		st := a.statusLocked()
		a.mu.Unlock()
		a.publish(st)
		return false
	}
	a.mu.Unlock()
	return a.speak(m)
}

// Stop cancels the current utterance, if any.
func (a *Adapter) Stop() {
	a.mu.Lock()
	a.stopLocked()
	st := a.statusLocked()
	a.mu.Unlock()
	a.publish(st)
}

// Speaking returns the id of the message being read aloud.
func (a *Adapter) Speaking() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return "", false
	}
	return a.current.messageID, true
}

func (a *Adapter) speak(m chat.Message) bool {
	if strings.TrimSpace(m.Text) == "" {
		return false
	}
	a.mu.Lock()
	if a.baseCtx.Err() != nil {
		a.mu.Unlock()
		return false
	}
	if !a.caps.CanSpeak {
		a.mu.Unlock()
		a.logger.Debug().Msg("speech output unavailable")
		return false
	}
	a.stopLocked()

	ctx, cancel := context.WithCancel(a.baseCtx)
	u := &utterance{messageID: m.ID, cancel: cancel, done: make(chan struct{})}
	a.current = u
	rate := a.rate
	st := a.statusLocked()
	a.mu.Unlock()
	a.publish(st)

	locale := LocaleOf(a.detector, m.Text)
	a.logger.Debug().Str("message_id", m.ID).Str("locale", locale).Msg("speaking message")

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer close(u.done)
		err := a.caps.Synthesizer.Speak(ctx, Utterance{Text: m.Text, Locale: locale, Rate: rate})
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error().Err(err).Str("message_id", m.ID).Msg("speech synthesis failed")
		}
		cancel()

		a.mu.Lock()
		changed := a.current == u
		if changed {
			a.current = nil
		}
		st := a.statusLocked()
		a.mu.Unlock()
		if changed {
			a.publish(st)
		}
	}()
	return true
}

func (a *Adapter) stopLocked() {
	if a.current == nil {
		return
	}
	a.current.cancel()
	a.current = nil
}

// ToggleMode swaps between typing and speaking. Entering speak mode starts the
// recognizer; leaving it stops recognition and hands focus back to the input.
func (a *Adapter) ToggleMode() Mode {
	a.mu.Lock()
	if a.mode == ModeSpeak {
		a.mode = ModeType
		a.stopListeningLocked()
	} else {
		a.mode = ModeSpeak
	}
	mode := a.mode
	st := a.statusLocked()
	a.mu.Unlock()

	a.logger.Info().Str("mode", mode.String()).Msg("interaction mode changed")
	a.publish(st)
	if mode == ModeSpeak {
		if err := a.Listen(); err != nil && !errors.Is(err, ErrUnsupported) {
			a.logger.Error().Err(err).Msg("cannot start recognition")
		}
	} else if a.focusInput != nil {
		a.focusInput()
	}
	return mode
}

func (a *Adapter) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// SetRecognitionLanguage changes the recognition language, restarting a
// running recognizer with the new one.
func (a *Adapter) SetRecognitionLanguage(lang string) {
	if lang == "" {
		return
	}
	a.mu.Lock()
	a.recognitionLang = lang
	restart := a.listenCancel != nil
	if restart {
		a.stopListeningLocked()
	}
	st := a.statusLocked()
	a.mu.Unlock()

	a.logger.Info().Str("language", lang).Msg("recognition language set")
	a.publish(st)
	if restart {
		if err := a.Listen(); err != nil {
			a.logger.Error().Err(err).Msg("cannot restart recognition")
		}
	}
}

// Listen starts one recognition pass. The first transcript stops the
// recognizer and is submitted.
func (a *Adapter) Listen() error {
	a.mu.Lock()
	if !a.caps.CanListen {
		a.mu.Unlock()
		return ErrUnsupported
	}
	if a.baseCtx.Err() != nil {
		a.mu.Unlock()
		return errors.New("speech adapter closed")
	}
	a.stopListeningLocked()
	ctx, cancel := context.WithCancel(a.baseCtx)
	a.listenCancel = cancel
	a.listenSeq++
	seq := a.listenSeq
	lang := a.recognitionLang
	st := a.statusLocked()
	a.mu.Unlock()
	a.publish(st)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer cancel()
		text, err := a.caps.Recognizer.Listen(ctx, lang)

		a.mu.Lock()
		current := a.listenSeq == seq
		if current {
			a.listenCancel = nil
		}
		st := a.statusLocked()
		a.mu.Unlock()
		if !current {
			return
		}
		a.publish(st)

		if err != nil {
			if !errors.Is(err, context.Canceled) {
				a.logger.Error().Err(err).Msg("speech recognition failed")
			}
			return
		}
		if text == "" {
			a.logger.Debug().Msg("recognizer finished without transcript")
			return
		}
		a.logger.Debug().Str("language", lang).Msg("transcript recognized")
		if a.submit != nil {
			a.submit(text)
		}
	}()
	return nil
}

// StopListening aborts a running recognition pass.
func (a *Adapter) StopListening() {
	a.mu.Lock()
	a.stopListeningLocked()
	st := a.statusLocked()
	a.mu.Unlock()
	a.publish(st)
}

func (a *Adapter) stopListeningLocked() {
	if a.listenCancel == nil {
		return
	}
	a.listenCancel()
	a.listenCancel = nil
	a.listenSeq++
}

// Close stops playback and recognition and waits for them to wind down.
func (a *Adapter) Close() {
	a.mu.Lock()
	a.stopLocked()
	a.stopListeningLocked()
	a.mu.Unlock()
	a.cancel()
	a.wg.Wait()
}

func (a *Adapter) statusLocked() Status {
	st := Status{
		Mode:                a.mode,
		Listening:           a.listenCancel != nil,
		RecognitionLanguage: a.recognitionLang,
	}
	if a.current != nil {
		st.SpeakingMessageID = a.current.messageID
	}
	return st
}

func (a *Adapter) publish(st Status) {
	if a.onStatus != nil {
		a.onStatus(st)
	}
}
