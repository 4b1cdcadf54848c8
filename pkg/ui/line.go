package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/go-go-golems/partygpt/pkg/chat"
	"github.com/go-go-golems/partygpt/pkg/session"
)

// LineView is the plain text front end used when no terminal is attached.
// It prints assistant messages and session notices; typed lines are not echoed.
type LineView struct {
	mu  sync.Mutex
	out io.Writer
}

var _ session.View = (*LineView)(nil)

func NewLineView(out io.Writer) *LineView {
	return &LineView{out: out}
}

func (v *LineView) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, _ = fmt.Fprintf(v.out, format, args...)
}

func (v *LineView) AppendMessage(m chat.Message) {
	if m.Sender == chat.SenderUser {
		return
	}
	v.printf("%s: %s\n", m.Prefix(), m.Text)
}

func (v *LineView) ClearTranscript() { v.printf("--- new session ---\n") }
func (v *LineView) ClearInput()      {}
func (v *LineView) FocusInput()      {}

func (v *LineView) SetInputEnabled(enabled bool) {
	if !enabled {
		v.printf("(input disabled)\n")
	}
}

func (v *LineView) SetSessionControlsVisible(bool) {}

func (v *LineView) SetNewSessionHintVisible(visible bool) {
	if visible {
		v.printf("A new session will start soon…\n")
	}
}

func (v *LineView) SetRecordingStatus(status string, recording bool) {
	if status == "" {
		return
	}
	v.printf("[%s]\n", status)
}

const (
	lineCommandClose  = ":close"
	lineCommandRecord = ":record"
	lineCommandQuit   = ":quit"
)

// RunLines feeds lines from in to ctrl until in is exhausted, ctx is cancelled
// or the user types :quit.
func RunLines(ctx context.Context, in io.Reader, ctrl SessionControl) error {
	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errCh:
					return errors.Wrap(err, "read input")
				default:
					return nil
				}
			}
			ctrl.Interact()
			switch strings.TrimSpace(line) {
			case lineCommandQuit:
				return nil
			case lineCommandClose:
				ctrl.RequestClose()
			case lineCommandRecord:
				ctrl.ToggleRecording()
			default:
				ctrl.Submit(line)
			}
		}
	}
}
