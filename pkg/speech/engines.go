package speech

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// baseWordsPerMinute is the default speed of espeak and say.
const baseWordsPerMinute = 175

// CommandSynthesizer drives a command line speech engine, feeding the text on stdin.
type CommandSynthesizer struct {
	name string
	path string
}

func NewCommandSynthesizer(name, path string) *CommandSynthesizer {
	return &CommandSynthesizer{name: name, path: path}
}

func (s *CommandSynthesizer) Speak(ctx context.Context, u Utterance) error {
	if strings.TrimSpace(u.Text) == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, s.path, s.args(u)...)
	cmd.Stdin = strings.NewReader(u.Text)
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return errors.Wrapf(err, "%s failed: %s", s.name, strings.TrimSpace(string(out)))
	}
	return nil
}

func (s *CommandSynthesizer) args(u Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	wpm := strconv.Itoa(int(baseWordsPerMinute * rate))
	switch s.name {
	case "say":
		return []string{"-r", wpm, "-f", "-"}
	default:
		args := []string{"-s", wpm}
		if voice := EspeakVoice(u.Locale); voice != "" {
			args = append(args, "-v", voice)
		}
		return append(args, "--stdin")
	}
}

// helperEvent is one JSON line printed by the recognizer helper.
type helperEvent struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

const (
	helperEventPartial    = "partial"
	helperEventTranscript = "transcript"
	helperEventError      = "error"
)

// HelperRecognizer runs an external recognizer process. The process receives
// the locale as its only argument, prints one JSON object per line on stdout
// and exits when it reads "stop" on stdin.
type HelperRecognizer struct {
	path   string
	logger zerolog.Logger
}

func NewHelperRecognizer(path string) *HelperRecognizer {
	return &HelperRecognizer{
		path:   path,
		logger: log.With().Str("component", "speech").Str("recognizer", path).Logger(),
	}
}

func (r *HelperRecognizer) Listen(ctx context.Context, locale string) (string, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	cmd := exec.CommandContext(ctx, r.path, locale)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", errors.Wrap(err, "recognizer stdout")
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", errors.Wrap(err, "recognizer stdin")
	}
	if err := cmd.Start(); err != nil {
		return "", errors.Wrap(err, "start recognizer")
	}
	r.logger.Debug().Str("locale", locale).Msg("recognizer started")

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			_, _ = io.WriteString(stdin, "stop\n")
			_ = stdin.Close()
		})
	}

	transcript, scanErr := r.readTranscript(stdout)
	stop()
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if scanErr != nil {
		return "", scanErr
	}
	if transcript == "" && waitErr != nil {
		return "", errors.Wrap(waitErr, "recognizer exited")
	}
	return transcript, nil
}

// readTranscript returns the first final transcript, skipping partial results
// and lines that are not JSON.
func (r *HelperRecognizer) readTranscript(stdout io.Reader) (string, error) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		var ev helperEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			r.logger.Debug().Str("line", scanner.Text()).Msg("ignoring recognizer output")
			continue
		}
		switch ev.Type {
		case helperEventTranscript:
			if text := strings.TrimSpace(ev.Text); text != "" {
				return text, nil
			}
		case helperEventError:
			return "", errors.Errorf("recognizer error: %s", ev.Message)
		case helperEventPartial:
			r.logger.Trace().Str("text", ev.Text).Msg("partial transcript")
		}
	}
	if err := scanner.Err(); err != nil {
		return "", errors.Wrap(err, "read recognizer output")
	}
	return "", nil
}
