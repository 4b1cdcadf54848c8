package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/partygpt/pkg/chat"
	"github.com/go-go-golems/partygpt/pkg/speech"
)

// SessionControl is the part of the session controller the TUI drives.
type SessionControl interface {
	Submit(text string) bool
	Interact()
	RequestClose() bool
	ToggleRecording() bool
}

// SpeechControl is the part of the speech adapter the TUI drives.
type SpeechControl interface {
	Capabilities() speech.Capabilities
	Click(m chat.Message) bool
	Stop()
	ToggleMode() speech.Mode
	SetRecognitionLanguage(lang string)
	Listen() error
}

const inputHeight = 3

type Model struct {
	bridge *Bridge
	ctrl   SessionControl
	speech SpeechControl

	viewport viewport.Model
	input    textarea.Model

	messages []chat.Message
	rendered map[string]string
	selected int

	inputEnabled    bool
	controlsVisible bool
	hintVisible     bool
	recording       bool
	recordingStatus string
	speechStatus    speech.Status
	flash           string

	languageForm  *huh.Form
	languageValue *string

	width int
}

func NewModel(bridge *Bridge, ctrl SessionControl, sp SpeechControl) Model {
	ta := textarea.New()
	ta.Placeholder = "Say something to the party guest…"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	vp := viewport.New(80, 12)

	return Model{
		bridge:          bridge,
		ctrl:            ctrl,
		speech:          sp,
		viewport:        vp,
		input:           ta,
		rendered:        map[string]string{},
		selected:        -1,
		inputEnabled:    true,
		controlsVisible: true,
		recording:       true,
		width:           80,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.bridge.Wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.languageForm != nil {
		return m.updateLanguageForm(msg)
	}

	switch ev := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(ev.Width, ev.Height)
		return m, nil

	case bridgeBatchMsg:
		for _, inner := range ev {
			m = m.apply(inner)
		}
		m.refreshViewport()
		return m, m.bridge.Wait()

	case tea.MouseMsg:
		m.ctrl.Interact()
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		m.ctrl.Interact()
		m.flash = ""
		if handled, next, cmd := m.handleKey(ev); handled {
			return next, cmd
		}
		if !m.inputEnabled {
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(k tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	switch k.String() {
	case "ctrl+c":
		return true, m, tea.Quit

	case "enter":
		if !m.inputEnabled {
			return true, m, nil
		}
		m.ctrl.Submit(m.input.Value())
		return true, m, nil

	case "alt+enter":
		if m.inputEnabled {
			m.input.InsertString("\n")
		}
		return true, m, nil

	case "ctrl+x":
		if m.controlsVisible {
			m.ctrl.RequestClose()
		}
		return true, m, nil

	case "ctrl+r":
		if m.controlsVisible {
			m.ctrl.ToggleRecording()
		}
		return true, m, nil

	case "alt+up":
		m.moveSelection(-1)
		return true, m, nil

	case "alt+down":
		m.moveSelection(1)
		return true, m, nil

	case "ctrl+y":
		if msg, ok := m.selectedMessage(); ok {
			if err := clipboard.WriteAll(msg.Text); err != nil {
				log.Warn().Err(err).Str("component", "ui").Msg("clipboard write failed")
				m.flash = "Could not copy to clipboard"
			} else {
				m.flash = "Copied message to clipboard"
			}
		}
		return true, m, nil
	}

	if m.speech == nil {
		return false, m, nil
	}
	caps := m.speech.Capabilities()
	switch k.String() {
	case "ctrl+p":
		// only replies can be read aloud
		if msg, ok := m.selectedMessage(); ok && caps.CanSpeak && msg.Sender == chat.SenderAssistant {
			m.speech.Click(msg)
		}
		return true, m, nil

	case "ctrl+k":
		m.speech.Stop()
		return true, m, nil

	case "ctrl+t":
		if caps.CanListen {
			m.speech.ToggleMode()
		}
		return true, m, nil

	case "ctrl+o":
		if caps.CanListen {
			if err := m.speech.Listen(); err != nil {
				log.Error().Err(err).Str("component", "ui").Msg("cannot start recognition")
			}
		}
		return true, m, nil

	case "ctrl+l":
		if caps.CanListen {
			cmd := m.openLanguageForm()
			return true, m, cmd
		}
		return true, m, nil
	}
	return false, m, nil
}

func (m *Model) openLanguageForm() tea.Cmd {
	current := m.speechStatus.RecognitionLanguage
	if current == "" {
		current = speech.DefaultLocale
	}
	m.languageValue = &current
	m.languageForm = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Recognition language").
				Options(huh.NewOptions(speech.RecognitionLanguages...)...).
				Value(m.languageValue),
		),
	).WithTheme(huh.ThemeCharm())
	return m.languageForm.Init()
}

func (m Model) updateLanguageForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if batch, ok := msg.(bridgeBatchMsg); ok {
		for _, inner := range batch {
			m = m.apply(inner)
		}
		m.refreshViewport()
		return m, m.bridge.Wait()
	}
	if _, ok := msg.(tea.KeyMsg); ok {
		m.ctrl.Interact()
	}

	fm, cmd := m.languageForm.Update(msg)
	if f, ok := fm.(*huh.Form); ok {
		m.languageForm = f
	}
	switch m.languageForm.State {
	case huh.StateCompleted:
		if m.speech != nil && m.languageValue != nil {
			m.speech.SetRecognitionLanguage(*m.languageValue)
		}
		m.languageForm = nil
		m.languageValue = nil
		return m, nil
	case huh.StateAborted:
		m.languageForm = nil
		m.languageValue = nil
		return m, nil
	}
	return m, cmd
}

// apply folds one controller or speech update into the model.
func (m Model) apply(msg tea.Msg) Model {
	switch ev := msg.(type) {
	case appendMessageMsg:
		m.messages = append(m.messages, ev.message)
	case clearTranscriptMsg:
		m.messages = nil
		m.rendered = map[string]string{}
		m.selected = -1
	case clearInputMsg:
		m.input.Reset()
	case inputEnabledMsg:
		m.inputEnabled = ev.enabled
		if !ev.enabled {
			m.input.Blur()
		}
	case focusInputMsg:
		if m.inputEnabled {
			m.input.Focus()
		}
	case controlsVisibleMsg:
		m.controlsVisible = ev.visible
	case hintVisibleMsg:
		m.hintVisible = ev.visible
	case recordingStatusMsg:
		m.recording = ev.recording
		if ev.status != "" {
			m.recordingStatus = ev.status
		}
	case speechStatusMsg:
		m.speechStatus = ev.status
	}
	return m
}

func (m *Model) moveSelection(delta int) {
	if len(m.messages) == 0 {
		m.selected = -1
		return
	}
	if m.selected < 0 {
		if delta < 0 {
			m.selected = len(m.messages) - 1
		} else {
			m.selected = 0
		}
	} else {
		m.selected += delta
	}
	if m.selected < 0 {
		m.selected = 0
	}
	if m.selected >= len(m.messages) {
		m.selected = len(m.messages) - 1
	}
	m.refreshViewport()
}

func (m Model) selectedMessage() (chat.Message, bool) {
	if m.selected < 0 || m.selected >= len(m.messages) {
		return chat.Message{}, false
	}
	return m.messages[m.selected], true
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.input.SetWidth(width - 2)
	vpHeight := height - inputHeight - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.rendered = map[string]string{}
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(i, msg))
	}
	if m.hintVisible {
		b.WriteString("\n\n" + hintStyle.Render("A new session will start soon…"))
	}
	m.viewport.SetContent(b.String())
	if m.selected < 0 {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderMessage(i int, msg chat.Message) string {
	marker := "  "
	if i == m.selected {
		marker = selectedStyle.Render("› ")
	}
	if msg.ID == m.speechStatus.SpeakingMessageID {
		marker = speakingStyle.Render("♪ ")
	}

	if msg.Sender != chat.SenderAssistant {
		return marker + userStyle.Render(msg.Prefix()+":") + " " + msg.Text
	}
	body, ok := m.rendered[msg.ID]
	if !ok {
		out, err := glamour.Render(msg.Text, "dark")
		if err != nil {
			out = msg.Text
		}
		body = strings.TrimSpace(out)
		m.rendered[msg.ID] = body
	}
	return marker + assistantStyle.Render(msg.Prefix()+":") + " " + body
}

func (m Model) View() string {
	if m.languageForm != nil {
		return m.languageForm.View()
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("PartyGPT") + "\n")
	b.WriteString(m.viewport.View() + "\n")

	box := m.input.View()
	if !m.inputEnabled {
		box = disabledStyle.Render(box)
	}
	b.WriteString(inputBoxStyle.Width(max(m.width-2, 10)).Render(box) + "\n")
	b.WriteString(m.statusLine())
	return b.String()
}

func (m Model) statusLine() string {
	var parts []string
	if m.controlsVisible {
		label := "Enable recording"
		if m.recording {
			label = "Disable recording"
		}
		parts = append(parts, "ctrl+x: end session", "ctrl+r: "+label)
	}
	if m.speech != nil {
		caps := m.speech.Capabilities()
		if caps.CanListen {
			parts = append(parts, fmt.Sprintf("ctrl+t: %s mode", m.speechStatus.Mode))
		}
		if caps.CanSpeak {
			parts = append(parts, "ctrl+p: speak", "ctrl+k: stop")
		}
		if caps.CanListen {
			mic := "ctrl+o: mic"
			if m.speechStatus.Listening {
				mic = "listening…"
			}
			parts = append(parts, mic, "ctrl+l: "+m.speechStatus.RecognitionLanguage)
		}
	}
	parts = append(parts, "ctrl+y: copy", "ctrl+c: quit")

	line := statusStyle.Render(strings.Join(parts, " · "))
	var extra []string
	if m.recordingStatus != "" {
		extra = append(extra, m.recordingStatus)
	}
	if m.flash != "" {
		extra = append(extra, m.flash)
	}
	if len(extra) > 0 {
		line = lipgloss.JoinVertical(lipgloss.Left, statusStyle.Render(strings.Join(extra, " · ")), line)
	}
	return line
}
