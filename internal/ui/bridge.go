package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"chat-widget/internal/widget"
)

// UI messages produced by the controller through a Bridge
type (
	bodyMsg             struct{ visible bool }
	userMessageMsg      struct{ text string }
	assistantMessageMsg struct{ raw string }
	clearInputMsg       struct{}
	thinkingMsg         struct{ on bool }
	controlsMsg         struct{ enabled bool }
	focusMsg            struct{}
	hideQuickRepliesMsg struct{}
)

// Bridge is the controller's view inside the TUI. Controller calls run in
// tea.Cmd goroutines; the bridge hands their render events to the
// program loop over a channel.
type Bridge struct {
	events chan tea.Msg
}

var _ widget.View = (*Bridge)(nil)

// NewBridge creates a bridge with room for several submissions' worth of
// events
func NewBridge() *Bridge {
	return &Bridge{events: make(chan tea.Msg, 64)}
}

// Events is the channel the model listens on
func (b *Bridge) Events() <-chan tea.Msg {
	return b.events
}

func (b *Bridge) emit(msg tea.Msg) {
	b.events <- msg
}

func (b *Bridge) ShowBody()                     { b.emit(bodyMsg{visible: true}) }
func (b *Bridge) HideBody()                     { b.emit(bodyMsg{visible: false}) }
func (b *Bridge) AppendUserMessage(text string) { b.emit(userMessageMsg{text: text}) }
func (b *Bridge) ClearInput()                   { b.emit(clearInputMsg{}) }
func (b *Bridge) ShowThinking()                 { b.emit(thinkingMsg{on: true}) }
func (b *Bridge) HideThinking()                 { b.emit(thinkingMsg{on: false}) }
func (b *Bridge) SetControlsEnabled(on bool)    { b.emit(controlsMsg{enabled: on}) }
func (b *Bridge) FocusInput()                   { b.emit(focusMsg{}) }
func (b *Bridge) HideQuickReplies()             { b.emit(hideQuickRepliesMsg{}) }

// AppendAssistantMessage keeps only the raw reply; the model renders it
// as markdown
func (b *Bridge) AppendAssistantMessage(markup, raw string) {
	b.emit(assistantMessageMsg{raw: raw})
}

func waitForUIEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return e
	}
}
