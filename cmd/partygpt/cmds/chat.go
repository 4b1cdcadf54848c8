package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	input "github.com/tcnksm/go-input"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/partygpt/pkg/backend"
	"github.com/go-go-golems/partygpt/pkg/realtime"
	"github.com/go-go-golems/partygpt/pkg/session"
	"github.com/go-go-golems/partygpt/pkg/speech"
	"github.com/go-go-golems/partygpt/pkg/ui"
)

const ChatCommandName = "chat"

// ChatCommand runs the chat client against a backend, full screen when
// attached to a terminal and line by line otherwise.
type ChatCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = (*ChatCommand)(nil)

type chatSettings struct {
	Session session.Settings
	Backend backend.Settings
	Speech  speech.Settings
}

func NewChatCommand() (*ChatCommand, error) {
	sessionSection, err := session.NewSection()
	if err != nil {
		return nil, errors.Wrap(err, "build session section")
	}
	backendSection, err := backend.NewSection()
	if err != nil {
		return nil, errors.Wrap(err, "build backend section")
	}
	speechSection, err := speech.NewSection()
	if err != nil {
		return nil, errors.Wrap(err, "build speech section")
	}

	desc := cmds.NewCommandDescription(
		ChatCommandName,
		cmds.WithShort("Chat with the party guest"),
		cmds.WithLong("Open a chat session. Sessions end on request, after a period of inactivity, "+
			"or when the backend says goodbye, and a fresh one starts right away."),
		cmds.WithSections(sessionSection, backendSection, speechSection),
	)
	return &ChatCommand{CommandDescription: desc}, nil
}

func (c *ChatCommand) Run(ctx context.Context, parsedLayers *values.Values) error {
	s := &chatSettings{}
	if err := parsedLayers.DecodeSectionInto(session.SectionSlug, &s.Session); err != nil {
		return errors.Wrap(err, "init session settings")
	}
	if err := parsedLayers.DecodeSectionInto(backend.SectionSlug, &s.Backend); err != nil {
		return errors.Wrap(err, "init backend settings")
	}
	if err := parsedLayers.DecodeSectionInto(speech.SectionSlug, &s.Speech); err != nil {
		return errors.Wrap(err, "init speech settings")
	}

	client, err := backend.NewClientFromSettings(s.Backend)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interactive := isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())

	var (
		view   session.View
		bridge *ui.Bridge
	)
	speechOptions := []speech.AdapterOption{
		speech.WithRate(s.Speech.Rate()),
		speech.WithRecognitionLanguage(s.Speech.RecognitionLanguage),
	}
	if s.Speech.SpeakMode {
		speechOptions = append(speechOptions, speech.WithMode(speech.ModeSpeak))
	}
	if interactive {
		bridge = ui.NewBridge()
		view = bridge
		speechOptions = append(speechOptions,
			speech.WithStatusListener(bridge.PostSpeechStatus),
			speech.WithFocusInput(bridge.FocusInput),
		)
	} else {
		view = ui.NewLineView(os.Stdout)
	}

	// the adapter submits recognized speech through the controller built right after it
	var ctrl *session.Controller
	adapter := speech.NewAdapter(ctx, speech.Detect(s.Speech), func(text string) bool {
		return ctrl.Submit(text)
	}, speechOptions...)
	defer adapter.Close()
	if bridge != nil {
		bridge.PostSpeechStatus(adapter.Status())
	}

	ctrl, err = session.NewController(client, view,
		session.WithSpeaker(adapter),
		session.WithIdleTimeout(s.Session.IdleTimeout()),
	)
	if err != nil {
		return err
	}
	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	armRecognition(adapter, s.Speech.SpeakMode)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		socket := realtime.NewClient(realtime.SocketURL(client.BaseURL()))
		if err := socket.Run(egCtx, ctrl.HandleInstruction); err != nil {
			// the chat keeps working without backend instructions
			log.Warn().Err(err).Msg("instruction channel unavailable")
		}
		return nil
	})

	var runErr error
	if interactive {
		p := tea.NewProgram(ui.NewModel(bridge, ctrl, adapter),
			tea.WithAltScreen(),
			tea.WithMouseCellMotion(),
			tea.WithContext(ctx),
		)
		_, runErr = p.Run()
		bridge.Close()
		if errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
			runErr = nil
		}
	} else {
		runErr = ui.RunLines(ctx, os.Stdin, ctrl)
	}

	if interactive && ctx.Err() == nil {
		if err := askToKeepRecord(ctrl, os.Stdin, os.Stderr); err != nil {
			log.Warn().Err(err).Msg("exit prompt failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.Backend.RequestTimeout())
	defer shutdownCancel()
	if err := ctrl.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("chat shutdown")
	}

	cancel()
	if err := eg.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

type recognizer interface {
	Listen() error
}

// armRecognition starts listening right away when the chat opens in speak mode.
func armRecognition(r recognizer, speakMode bool) {
	if !speakMode {
		return
	}
	if err := r.Listen(); err != nil && !errors.Is(err, speech.ErrUnsupported) {
		log.Error().Err(err).Msg("cannot start recognition")
	}
}

// askToKeepRecord offers to discard the current conversation before the
// controller saves it on shutdown.
func askToKeepRecord(ctrl *session.Controller, r io.Reader, w io.Writer) error {
	if !ctrl.RecordingEnabled() || len(ctrl.Transcript()) == 0 {
		return nil
	}
	// an idle close or an elapsed farewell would save before the answer
	ctrl.StopTimers()
	prompt := &input.UI{Writer: w, Reader: r}
	_, _ = fmt.Fprint(w, "\n")
	answer, err := prompt.Ask("Keep a record of this conversation? [Y/n]", &input.Options{
		Default:  "y",
		Required: true,
		Loop:     true,
		ValidateFunc: func(answer string) error {
			switch answer {
			case "y", "Y", "n", "N", "":
				return nil
			default:
				return errors.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to get user input")
	}
	if answer == "n" || answer == "N" {
		ctrl.DiscardRecording()
	}
	return nil
}
