// Package tui is the terminal front end: a path prompt while no document is
// loaded, a composer once chat is unlocked, and a rendered message log.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/session"

	"github.com/aymanbagabas/go-osc52/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Soft limit on composer length; shown as a counter, never enforced.
const softCharLimit = 2000

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	statusStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	counterStyle   = lipgloss.NewStyle().Faint(true)
	spinnerFrames  = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

type uploadDoneMsg struct {
	warning string
	err     error
}

type sendDoneMsg struct {
	err error
}

type tickMsg time.Time

type clearNoticeMsg struct{}

// Model is the Bubble Tea model for the chat client.
type Model struct {
	ctrl *session.Controller

	input       string
	width       int
	height      int
	notice      string
	noticeStyle lipgloss.Style
	frame       int
}

func NewModel(ctrl *session.Controller) Model {
	return Model{
		ctrl:        ctrl,
		width:       80,
		height:      24,
		noticeStyle: statusStyle,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func clearNoticeAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearNoticeMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if m.ctrl.State() == session.StateAwaitingResponse {
			m.frame++
			return m, tick()
		}
		return m, nil

	case uploadDoneMsg:
		if msg.err != nil {
			m.notice, m.noticeStyle = msg.err.Error(), errorStyle
			return m, clearNoticeAfter(5 * time.Second)
		}
		if msg.warning != "" {
			m.notice, m.noticeStyle = msg.warning, warnStyle
			return m, clearNoticeAfter(5 * time.Second)
		}
		m.notice = ""
		return m, nil

	case sendDoneMsg:
		if msg.err != nil {
			m.notice, m.noticeStyle = msg.err.Error(), errorStyle
			return m, clearNoticeAfter(5 * time.Second)
		}
		return m, nil

	case clearNoticeMsg:
		m.notice = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyEnter:
		if msg.Alt {
			// Explicit newline override.
			m.input += "\n"
			return m, nil
		}
		return m.submit()

	case tea.KeyBackspace:
		if len(m.input) > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil

	case tea.KeyCtrlY:
		return m.copyLastReply()

	case tea.KeyCtrlE:
		return m.export()

	case tea.KeyCtrlL:
		if err := m.ctrl.Clear(); err != nil {
			m.notice, m.noticeStyle = err.Error(), errorStyle
		} else {
			m.notice, m.noticeStyle = "Session cleared. Upload a PDF to start again.", statusStyle
		}
		m.input = ""
		return m, clearNoticeAfter(5 * time.Second)

	case tea.KeySpace:
		m.input += " "
		return m, nil

	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	}

	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input)
	if text == "" {
		return m, nil
	}

	switch m.ctrl.State() {
	case session.StateAwaitingResponse:
		// Input is disabled while a response is pending.
		return m, nil

	case session.StateNoDocument:
		path := text
		m.input = ""
		m.notice, m.noticeStyle = "Uploading "+path+"...", statusStyle
		return m, tea.Batch(tick(), func() tea.Msg {
			warning, err := m.ctrl.Upload(context.Background(), path)
			return uploadDoneMsg{warning: warning, err: err}
		})

	default:
		m.input = ""
		m.notice = ""
		return m, tea.Batch(tick(), func() tea.Msg {
			return sendDoneMsg{err: m.ctrl.Send(context.Background(), text)}
		})
	}
}

func (m Model) copyLastReply() (tea.Model, tea.Cmd) {
	s := m.ctrl.Snapshot()
	for i := len(s.Messages) - 1; i >= 0; i-- {
		msg := s.Messages[i]
		if msg.Sender == session.SenderAssistant && !msg.Loading {
			osc52.New(msg.Content).WriteTo(os.Stderr)
			m.notice, m.noticeStyle = "Copied to clipboard", statusStyle
			return m, clearNoticeAfter(2 * time.Second)
		}
	}
	m.notice, m.noticeStyle = "Nothing to copy yet", statusStyle
	return m, clearNoticeAfter(2 * time.Second)
}

func (m Model) export() (tea.Model, tea.Cmd) {
	s := m.ctrl.Snapshot()
	name := fmt.Sprintf("chat_export_%d_%d_%d.json", s.UserID, s.SessionID, time.Now().Unix())

	f, err := os.Create(name)
	if err != nil {
		m.notice, m.noticeStyle = err.Error(), errorStyle
		return m, clearNoticeAfter(5 * time.Second)
	}
	defer f.Close()

	if err := m.ctrl.Export(f); err != nil {
		m.notice, m.noticeStyle = err.Error(), errorStyle
		return m, clearNoticeAfter(5 * time.Second)
	}

	m.notice, m.noticeStyle = "Exported to "+name, statusStyle
	return m, clearNoticeAfter(5 * time.Second)
}

func (m Model) View() string {
	s := m.ctrl.Snapshot()

	var b strings.Builder

	header := "Chat with PDF"
	if s.DocumentLoaded {
		header += " — " + s.DocumentName
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	// Show the tail of the conversation; roughly four lines per message.
	messages := s.Messages
	if maxVisible := m.height / 4; maxVisible > 0 && len(messages) > maxVisible {
		messages = messages[len(messages)-maxVisible:]
	}

	for _, msg := range messages {
		switch {
		case msg.Loading:
			frame := spinnerFrames[m.frame%len(spinnerFrames)]
			b.WriteString(assistantStyle.Render("assistant") + " " + statusStyle.Render(frame+" thinking..."))
		case msg.Sender == session.SenderUser:
			b.WriteString(userStyle.Render("you") + "\n" + msg.Content)
		default:
			b.WriteString(assistantStyle.Render("assistant") + "\n" + RenderMarkdown(msg.Content, m.width))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(m.inputView(s))

	if m.notice != "" {
		b.WriteString("\n" + m.noticeStyle.Render(m.notice))
	}

	b.WriteString("\n" + statusStyle.Render("enter send · alt+enter newline · ctrl+y copy · ctrl+e export · ctrl+l clear · ctrl+c quit"))

	return b.String()
}

func (m Model) inputView(s session.ChatSession) string {
	if m.ctrl.State() == session.StateAwaitingResponse {
		return statusStyle.Render("waiting for response...")
	}

	// The composer is a single row; show newlines as a marker instead of
	// letting a multi-line draft break the prompt line.
	draft := strings.ReplaceAll(m.input, "\n", counterStyle.Render("⏎"))

	if !s.DocumentLoaded {
		return promptStyle.Render("PDF path> ") + draft
	}

	counter := counterStyle.Render(fmt.Sprintf(" %d/%d", len([]rune(m.input)), softCharLimit))
	return promptStyle.Render("> ") + draft + counter
}
