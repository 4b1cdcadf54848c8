package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/partygpt/pkg/chat"
	"github.com/go-go-golems/partygpt/pkg/records"
)

const browserListWidth = 48

var (
	browserTitleStyle = lipgloss.NewStyle().MarginLeft(2).Bold(true).Foreground(lipgloss.Color("#FFFDF5"))
	browserPaneStyle  = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(0, 1)
	infoKeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AFAFAF"))
	noSelectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).PaddingTop(2)
)

type recordItem struct {
	record records.Record
}

func (r recordItem) Title() string {
	return fmt.Sprintf("#%d  %s", r.record.ID, r.record.SavedAt.Format("2006-01-02 15:04"))
}

func (r recordItem) Description() string {
	return fmt.Sprintf("%d messages, session %s", len(r.record.Messages), r.record.SessionID)
}

func (r recordItem) FilterValue() string {
	var sb strings.Builder
	for _, m := range r.record.Messages {
		sb.WriteString(m.Text)
		sb.WriteString(" ")
	}
	return sb.String()
}

// formatRecord renders a saved conversation for the detail pane.
func formatRecord(r records.Record) string {
	var sb strings.Builder
	sb.WriteString(infoKeyStyle.Render("Session: "))
	sb.WriteString(r.SessionID)
	sb.WriteString("\n")
	sb.WriteString(infoKeyStyle.Render("Saved: "))
	sb.WriteString(r.SavedAt.Format(time.RFC1123))
	sb.WriteString("\n\n")
	for _, m := range r.Messages {
		style := userStyle
		if m.Sender == chat.SenderAssistant {
			style = assistantStyle
		}
		sb.WriteString(style.Render(m.Prefix() + ":"))
		sb.WriteString(" ")
		sb.WriteString(m.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// RecordBrowser is a two pane viewer for saved conversations: the list of
// records on the left and the selected conversation on the right. Enter
// widens the conversation pane, q quits.
type RecordBrowser struct {
	list     list.Model
	viewport viewport.Model
	selected int64
	expanded bool
	ready    bool
	width    int
	height   int
}

func NewRecordBrowser(rs []records.Record) RecordBrowser {
	items := make([]list.Item, 0, len(rs))
	for _, r := range rs {
		items = append(items, recordItem{record: r})
	}
	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 0, 0)
	l.Title = "Saved conversations"
	l.Styles.Title = browserTitleStyle
	l.SetShowStatusBar(false)
	l.SetShowHelp(true)

	return RecordBrowser{
		list:     l,
		viewport: viewport.New(0, 0),
		selected: -1,
	}
}

func (m RecordBrowser) Init() tea.Cmd {
	return nil
}

// Selected returns the id of the record shown in the detail pane.
func (m RecordBrowser) Selected() (int64, bool) {
	return m.selected, m.selected >= 0
}

func (m RecordBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "q", "ctrl+c":
				return m, tea.Quit
			case "enter":
				m.expanded = !m.expanded
				m.layout()
				return m, nil
			}
		}
		var cmd tea.Cmd
		if m.expanded {
			m.viewport, cmd = m.viewport.Update(msg)
		} else {
			m.list, cmd = m.list.Update(msg)
			m.syncSelection()
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		m.syncSelection()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *RecordBrowser) layout() {
	paneHeight := m.height - 2
	if paneHeight < 3 {
		paneHeight = 3
	}
	m.list.SetSize(browserListWidth, paneHeight)
	detailWidth := m.width - browserListWidth - 6
	if m.expanded {
		detailWidth = m.width - 4
	}
	if detailWidth < 10 {
		detailWidth = 10
	}
	m.viewport.Width = detailWidth
	m.viewport.Height = paneHeight
}

func (m *RecordBrowser) syncSelection() {
	item, ok := m.list.SelectedItem().(recordItem)
	if !ok {
		m.selected = -1
		m.viewport.SetContent("")
		return
	}
	if item.record.ID == m.selected {
		return
	}
	m.selected = item.record.ID
	m.viewport.SetContent(formatRecord(item.record))
	m.viewport.GotoTop()
}

func (m RecordBrowser) View() string {
	if !m.ready {
		return "Loading..."
	}
	detail := m.viewport.View()
	if m.selected < 0 {
		detail = noSelectionStyle.Render("No saved conversations")
	}
	detailPane := browserPaneStyle.Width(m.viewport.Width).Render(detail)
	if m.expanded {
		return detailPane
	}
	listPane := browserPaneStyle.Width(browserListWidth).Render(m.list.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}
