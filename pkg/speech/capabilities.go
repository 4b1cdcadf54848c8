package speech

import (
	"context"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrUnsupported is returned by the stubs used when no engine is available.
var ErrUnsupported = errors.New("speech capability not available")

// Utterance is one piece of text to be read aloud.
type Utterance struct {
	Text   string
	Locale string
	Rate   float64
}

// Synthesizer reads text aloud. Speak blocks until playback finishes or ctx is
// cancelled; cancelling stops playback.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
}

// Recognizer captures speech and returns the first transcript. Listen blocks
// until a transcript arrives, the recognizer gives up or ctx is cancelled.
type Recognizer interface {
	Listen(ctx context.Context, locale string) (string, error)
}

// Capabilities is the outcome of feature detection.
type Capabilities struct {
	Synthesizer Synthesizer
	Recognizer  Recognizer
	CanSpeak    bool
	CanListen   bool
	// Engine names the synthesizer binary, empty when none was found.
	Engine string
}

var synthesizerEngines = []string{"espeak-ng", "espeak", "say"}

// Detect probes the PATH for a speech engine and the recognizer helper, and
// falls back to stubs for whatever is missing.
func Detect(s Settings) Capabilities {
	return detect(s, exec.LookPath)
}

func detect(s Settings, lookPath func(string) (string, error)) Capabilities {
	logger := log.With().Str("component", "speech").Logger()
	caps := Capabilities{
		Synthesizer: noopSynthesizer{},
		Recognizer:  noopRecognizer{},
	}

	candidates := synthesizerEngines
	switch s.Engine {
	case EngineNone:
		candidates = nil
	case "", EngineAuto:
	default:
		candidates = []string{s.Engine}
	}
	for _, name := range candidates {
		path, err := lookPath(name)
		if err != nil {
			continue
		}
		caps.Synthesizer = NewCommandSynthesizer(name, path)
		caps.CanSpeak = true
		caps.Engine = name
		break
	}
	if !caps.CanSpeak {
		logger.Info().Str("engine", s.Engine).Msg("no speech synthesizer available, text output only")
	}

	if s.RecognizerCommand != "" {
		if path, err := lookPath(s.RecognizerCommand); err == nil {
			caps.Recognizer = NewHelperRecognizer(path)
			caps.CanListen = true
		} else {
			logger.Warn().Err(err).Str("command", s.RecognizerCommand).Msg("speech recognizer helper not found")
		}
	}
	return caps
}

type noopSynthesizer struct{}

func (noopSynthesizer) Speak(context.Context, Utterance) error { return ErrUnsupported }

type noopRecognizer struct{}

func (noopRecognizer) Listen(context.Context, string) (string, error) { return "", ErrUnsupported }
