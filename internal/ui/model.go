package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"chat-widget/internal/config"
	"chat-widget/internal/format"
	"chat-widget/internal/widget"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#667EEA")).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0E0FF"))
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#667EEA"))
	botLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#764BA2"))
	userTextStyle  = lipgloss.NewStyle().PaddingLeft(2)
	quickStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#667EEA")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#667EEA")).Padding(0, 1)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

// Options controls what the TUI shows around the conversation
type Options struct {
	Title        string
	StatusText   string
	Greeting     string
	QuickReplies []string
}

// OptionsFromConfig copies the presentation settings out of cfg
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Title:        cfg.Title,
		StatusText:   cfg.StatusText,
		Greeting:     cfg.Greeting,
		QuickReplies: append([]string(nil), cfg.QuickReplies...),
	}
}

type entry struct {
	user bool
	text string
	took time.Duration
}

// submittedMsg is returned once a controller submission settles
type submittedMsg struct{ accepted bool }

// Model is the bubbletea model of the chat widget. It only mirrors what
// the controller tells it through the bridge; all chat state lives in
// the controller.
type Model struct {
	ctx    context.Context
	ctrl   *widget.Controller
	events <-chan tea.Msg
	opts   Options

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	wrap     int

	width  int
	height int

	entries             []entry
	bodyVisible         bool
	thinking            bool
	thinkingSince       time.Time
	controlsEnabled     bool
	quickRepliesVisible bool
}

// NewModel creates the TUI model for ctrl. events must be the channel of
// the Bridge the controller was created with.
func NewModel(ctx context.Context, opts Options, ctrl *widget.Controller, events <-chan tea.Msg) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.Prompt = "> "
	ti.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#764BA2"))

	m := Model{
		ctx:                 ctx,
		ctrl:                ctrl,
		events:              events,
		opts:                opts,
		input:               ti,
		viewport:            viewport.New(80, 3),
		spinner:             sp,
		controlsEnabled:     true,
		quickRepliesVisible: len(opts.QuickReplies) > 0,
	}
	if opts.Greeting != "" {
		m.entries = append(m.entries, entry{text: opts.Greeting})
	}
	m.resize(80, 24)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForUIEvent(m.events))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.thinking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case submittedMsg:
		return m, nil

	case bodyMsg:
		m.bodyVisible = msg.visible
		if msg.visible {
			return m, tea.Batch(waitForUIEvent(m.events), m.input.Focus())
		}
		m.input.Blur()
		return m, waitForUIEvent(m.events)

	case userMessageMsg:
		m.entries = append(m.entries, entry{user: true, text: msg.text})
		m.setContent(true)
		return m, waitForUIEvent(m.events)

	case assistantMessageMsg:
		e := entry{text: msg.raw}
		if !m.thinkingSince.IsZero() {
			e.took = time.Since(m.thinkingSince)
			m.thinkingSince = time.Time{}
		}
		m.entries = append(m.entries, e)
		m.setContent(true)
		return m, waitForUIEvent(m.events)

	case clearInputMsg:
		m.input.Reset()
		return m, waitForUIEvent(m.events)

	case thinkingMsg:
		m.thinking = msg.on
		if msg.on {
			m.thinkingSince = time.Now()
			return m, tea.Batch(waitForUIEvent(m.events), m.spinner.Tick)
		}
		return m, waitForUIEvent(m.events)

	case controlsMsg:
		m.controlsEnabled = msg.enabled
		if !msg.enabled {
			m.input.Blur()
		}
		return m, waitForUIEvent(m.events)

	case focusMsg:
		if !m.bodyVisible {
			return m, waitForUIEvent(m.events)
		}
		return m, tea.Batch(waitForUIEvent(m.events), m.input.Focus())

	case hideQuickRepliesMsg:
		m.quickRepliesVisible = false
		m.resize(m.width, m.height)
		return m, waitForUIEvent(m.events)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+t":
		return m, m.toggleCmd()
	}

	if !m.bodyVisible {
		return m, nil
	}

	switch msg.String() {
	case "enter":
		if !m.controlsEnabled {
			return m, nil
		}
		return m, m.keyCmd("Enter", m.input.Value())
	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if !m.controlsEnabled {
		return m, nil
	}

	if m.quickRepliesVisible && m.input.Value() == "" {
		if n := quickReplyIndex(msg.String()); n > 0 && n <= len(m.opts.QuickReplies) {
			return m, m.quickReplyCmd(m.opts.QuickReplies[n-1])
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) toggleCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.Toggle()
		return nil
	}
}

func (m Model) keyCmd(key, text string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return submittedMsg{accepted: ctrl.HandleKey(ctx, key, text)}
	}
}

func (m Model) quickReplyCmd(text string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return submittedMsg{accepted: ctrl.SendQuickReply(ctx, text)}
	}
}

// quickReplyIndex maps the keys 1..9 to quick reply numbers
func quickReplyIndex(key string) int {
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		return int(key[0] - '0')
	}
	return 0
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	// header, quick replies, thinking line, input and help
	chrome := 7
	if m.quickRepliesVisible {
		chrome += 2
	}
	vpHeight := height - chrome
	if vpHeight < 3 {
		vpHeight = 3
	}

	follow := m.viewport.AtBottom()
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.Width = width - 4

	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	if m.renderer == nil || wrap != m.wrap {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			log.Warn().Err(err).Msg("markdown renderer unavailable")
		} else {
			m.renderer = r
			m.wrap = wrap
		}
		m.setContent(follow)
		return
	}

	if follow {
		m.viewport.GotoBottom()
	} else {
		m.viewport.SetYOffset(m.viewport.YOffset)
	}
}

// setContent re-renders all entries. follow keeps the view pinned to the
// newest message; otherwise the scroll position is kept.
func (m *Model) setContent(follow bool) {
	parts := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		parts = append(parts, m.renderEntry(e))
	}
	m.viewport.SetContent(strings.Join(parts, "\n"))
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderEntry(e entry) string {
	if e.user {
		return userLabelStyle.Render("You") + "\n" + userTextStyle.Render(e.text) + "\n"
	}

	body := format.InlineANSI(e.text)
	if m.renderer != nil {
		if out, err := m.renderer.Render(format.InlineMarkdown(e.text)); err == nil {
			body = strings.Trim(out, "\n")
		}
	}

	s := botLabelStyle.Render("Assistant") + "\n" + body
	if e.took > 0 {
		s += "\n" + dimStyle.Render("  replied in "+formatDuration(e.took))
	}
	return s + "\n"
}

func (m Model) View() string {
	header := headerStyle.Render(m.opts.Title) + " " + statusStyle.Render(m.opts.StatusText)

	if !m.bodyVisible {
		return header + "\n" + helpStyle.Render("ctrl+t open chat • esc quit")
	}

	var b strings.Builder
	b.WriteString(header + "\n")
	b.WriteString(m.viewport.View() + "\n")

	if m.quickRepliesVisible {
		chips := make([]string, 0, len(m.opts.QuickReplies))
		for i, q := range m.opts.QuickReplies {
			chips = append(chips, quickStyle.Render(fmt.Sprintf("%d %s", i+1, truncate(q, 32))))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, chips...) + "\n")
	}

	if m.thinking {
		b.WriteString(m.spinner.View() + " 🤖 Thinking...\n")
	} else {
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())

	help := "enter send • ctrl+t minimise • esc quit"
	if m.quickRepliesVisible {
		help = "1-9 quick reply • " + help
	}
	b.WriteString("\n" + helpStyle.Render(help))
	return b.String()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
