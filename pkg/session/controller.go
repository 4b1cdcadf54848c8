package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/partygpt/pkg/chat"
)

// State is the lifecycle phase of the current session.
type State int

const (
	// StateActive accepts input and keeps the idle timer armed.
	StateActive State = iota
	// StateEnding means the backend announced the end; input is disabled until the countdown elapses.
	StateEnding
	// StateClosed is the short phase between clearing a session and starting the next one.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type ControllerOption func(*Controller) error

func WithSpeaker(s Speaker) ControllerOption {
	return func(c *Controller) error {
		c.speaker = s
		return nil
	}
}

func WithIdleTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) error {
		if d <= 0 {
			return errors.Errorf("idle timeout must be positive, got %s", d)
		}
		c.idleTimeout = d
		return nil
	}
}

// WithInstructionTimeUnit sets the unit of the instruction countdown (seconds by default).
func WithInstructionTimeUnit(d time.Duration) ControllerOption {
	return func(c *Controller) error {
		if d <= 0 {
			return errors.Errorf("instruction time unit must be positive, got %s", d)
		}
		c.instructionUnit = d
		return nil
	}
}

func WithLogger(l zerolog.Logger) ControllerOption {
	return func(c *Controller) error {
		c.logger = l
		return nil
	}
}

// Controller owns the session state machine: it forwards user input to the
// backend, applies backend replies and instructions, and ends sessions on
// request, on idle timeout or after a backend-announced countdown.
type Controller struct {
	mu sync.Mutex

	backend Backend
	view    View
	speaker Speaker

	transcript *chat.Transcript

	state      State
	recording  bool
	generation uint64
	started    bool
	shutdown   bool

	idleTimeout     time.Duration
	instructionUnit time.Duration
	idle            *IdleTimer
	countdown       *Timer

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	logger zerolog.Logger
}

func NewController(backend Backend, view View, options ...ControllerOption) (*Controller, error) {
	if backend == nil {
		return nil, errors.New("session controller needs a backend")
	}
	if view == nil {
		return nil, errors.New("session controller needs a view")
	}
	c := &Controller{
		backend:         backend,
		view:            view,
		transcript:      chat.NewTranscript(),
		state:           StateClosed,
		recording:       true,
		idleTimeout:     DefaultIdleTimeout,
		instructionUnit: time.Second,
		logger:          log.With().Str("component", "session").Logger(),
	}
	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "failed to apply controller option")
		}
	}
	c.idle = NewIdleTimer(c.idleTimeout, c.onIdle)
	c.countdown = NewTimer(c.onCountdown)
	return c, nil
}

// Start opens the first session. ctx bounds every background request.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("session controller already started")
	}
	c.baseCtx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.beginSessionLocked()
	c.view.SetRecordingStatus("", c.recording)
	c.logger.Info().Dur("idle_timeout", c.idleTimeout).Msg("session started")
	return nil
}

// Submit sends a user message. Blank text and text submitted outside an active
// session are ignored and reported as false.
func (c *Controller) Submit(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	c.mu.Lock()
	if !c.started || c.shutdown || c.state != StateActive {
		c.mu.Unlock()
		c.logger.Debug().Str("state", c.State().String()).Msg("dropping message outside active session")
		return false
	}
	msg := chat.NewMessage(chat.SenderUser, text)
	c.appendLocked(msg)
	c.view.ClearInput()
	gen := c.generation
	c.goBackgroundLocked(func(ctx context.Context) {
		reply, err := c.backend.ProcessInput(ctx, text)
		if err != nil {
			c.logger.Error().Err(err).Msg("process input failed")
			return
		}
		c.applyReply(gen, reply)
	})
	c.mu.Unlock()
	return true
}

func (c *Controller) applyReply(gen uint64, reply *string) {
	if reply == nil || *reply == "" {
		c.logger.Debug().Msg("received empty reply from backend")
		return
	}

	c.mu.Lock()
	if c.shutdown || gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug().Uint64("reply_generation", gen).Msg("dropping reply from a previous session")
		return
	}
	msg := chat.NewMessage(chat.SenderAssistant, *reply)
	c.appendLocked(msg)
	c.mu.Unlock()

	c.notifySpeaker(msg)
}

// Interact records a qualifying user interaction and rearms the idle timer.
func (c *Controller) Interact() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.shutdown || c.state != StateActive {
		return
	}
	c.idle.Reset()
}

// RequestClose ends the active session on user request.
func (c *Controller) RequestClose() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.shutdown || c.state != StateActive {
		return false
	}
	c.logger.Info().Msg("session closed by user")
	c.closeLocked()
	return true
}

// ToggleRecording flips the recording flag and reports the new value to the backend.
func (c *Controller) ToggleRecording() bool {
	c.mu.Lock()
	if !c.started || c.shutdown || c.state != StateActive {
		flag := c.recording
		c.mu.Unlock()
		return flag
	}
	c.recording = !c.recording
	flag := c.recording
	c.goBackgroundLocked(func(ctx context.Context) {
		c.pushRecordingFlag(ctx, flag)
	})
	c.mu.Unlock()

	c.logger.Info().Bool("recording", flag).Msg("chat recording flag toggled")
	return flag
}

// StopTimers disarms the idle timer and the farewell countdown, so the session
// no longer closes on its own. Used right before shutting down.
func (c *Controller) StopTimers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idle.Stop()
	c.countdown.Stop()
}

// DiscardRecording turns recording off in any session state and stops the
// timers, so neither an automatic close nor Shutdown saves the conversation.
func (c *Controller) DiscardRecording() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idle.Stop()
	c.countdown.Stop()
	if !c.started || c.shutdown || !c.recording {
		return
	}
	c.recording = false
	c.logger.Info().Str("state", c.state.String()).Msg("conversation record discarded")
	c.goBackgroundLocked(func(ctx context.Context) {
		c.pushRecordingFlag(ctx, false)
	})
}

// HandleInstruction applies a directive pushed by the backend.
func (c *Controller) HandleInstruction(in Instruction) {
	switch in.Type {
	case InstructionRefreshSessionTimer:
		c.beginEnding(in)
	default:
		c.logger.Error().Str("type", in.Type).Msg("unknown instruction")
	}
}

func (c *Controller) beginEnding(in Instruction) {
	c.mu.Lock()
	if !c.started || c.shutdown || c.state == StateClosed {
		c.mu.Unlock()
		return
	}

	var farewell *chat.Message
	if in.GoodbyeMsg != "" {
		msg := chat.NewMessage(chat.SenderAssistant, in.GoodbyeMsg)
		c.appendLocked(msg)
		farewell = &msg
	}
	c.view.SetInputEnabled(false)
	c.view.SetSessionControlsVisible(false)
	if c.recording {
		c.goBackgroundLocked(c.saveRecords)
	}
	c.idle.Stop()
	c.state = StateEnding
	countdown := in.Countdown(c.instructionUnit)
	c.countdown.Arm(countdown)
	c.view.SetNewSessionHintVisible(true)
	c.logger.Info().Dur("countdown", countdown).Msg("session ending on backend request")
	c.mu.Unlock()

	if farewell != nil {
		c.notifySpeaker(*farewell)
	}
}

// Shutdown stops the controller, saving records when recording is enabled, and
// waits for in-flight requests until ctx is done.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.started || c.shutdown {
		c.mu.Unlock()
		return nil
	}
	c.shutdown = true
	c.idle.Stop()
	c.countdown.Stop()
	saving := c.recording
	c.mu.Unlock()

	var err error
	if saving {
		if saveErr := c.backend.SaveRecords(ctx); saveErr != nil {
			err = errors.Wrap(saveErr, "save records on shutdown")
		}
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn().Msg("shutdown did not wait for pending requests")
	}
	c.cancel()
	return err
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) RecordingEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Generation identifies the current session; it increases with every new session.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *Controller) Transcript() []chat.Message {
	return c.transcript.Messages()
}

// Message looks up a message of the current session by id.
func (c *Controller) Message(id string) (chat.Message, bool) {
	return c.transcript.Get(id)
}

func (c *Controller) onIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	// a pending timer means someone rearmed after this callback was scheduled
	if c.shutdown || c.state != StateActive || c.idle.Pending() {
		return
	}
	c.logger.Info().Dur("idle_timeout", c.idleTimeout).Msg("session closed after inactivity")
	c.closeLocked()
}

func (c *Controller) onCountdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown || c.state != StateEnding || c.countdown.Pending() {
		return
	}
	c.logger.Info().Msg("session countdown elapsed")
	c.closeLocked()
}

func (c *Controller) closeLocked() {
	saving := c.recording
	c.state = StateClosed
	c.idle.Stop()
	c.countdown.Stop()
	c.transcript.Clear()
	c.view.ClearTranscript()

	c.beginSessionLocked()

	c.goBackgroundLocked(func(ctx context.Context) {
		if saving {
			c.saveRecords(ctx)
		}
		if err := c.backend.CloseSession(ctx); err != nil {
			c.logger.Error().Err(err).Msg("close session request failed")
		}
		c.pushRecordingFlag(ctx, true)
	})
}

func (c *Controller) beginSessionLocked() {
	c.generation++
	c.recording = true
	c.state = StateActive
	c.view.SetNewSessionHintVisible(false)
	c.view.SetInputEnabled(true)
	c.view.FocusInput()
	c.view.SetSessionControlsVisible(true)
	c.idle.Reset()
	c.logger.Debug().Uint64("generation", c.generation).Msg("new session")
}

func (c *Controller) appendLocked(m chat.Message) {
	if err := c.transcript.Append(m); err != nil {
		c.logger.Error().Err(err).Msg("cannot append message")
		return
	}
	c.view.AppendMessage(m)
}

func (c *Controller) saveRecords(ctx context.Context) {
	if err := c.backend.SaveRecords(ctx); err != nil {
		c.logger.Error().Err(err).Msg("save records failed")
	}
}

func (c *Controller) pushRecordingFlag(ctx context.Context, flag bool) {
	status, err := c.backend.SetRecords(ctx, flag)
	if err != nil {
		c.logger.Error().Err(err).Bool("flag", flag).Msg("set records failed")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return
	}
	c.view.SetRecordingStatus(status, c.recording)
}

func (c *Controller) notifySpeaker(m chat.Message) {
	if c.speaker != nil {
		c.speaker.OnAssistantMessage(m)
	}
}

// goBackgroundLocked runs fn on its own goroutine, bounded by the controller
// context. c.mu must be held and shutdown not yet begun, so that Shutdown's
// wait covers every request started.
func (c *Controller) goBackgroundLocked(fn func(ctx context.Context)) {
	ctx := c.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(ctx)
	}()
}
