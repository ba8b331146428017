package widget

// View renders controller state changes. Implementations only draw; they
// must not call back into the Controller from these methods.
type View interface {
	ShowBody()
	HideBody()

	// AppendUserMessage renders the user's text verbatim
	AppendUserMessage(text string)
	// AppendAssistantMessage receives the reply both as inline-formatted
	// markup and as the raw text returned by the service
	AppendAssistantMessage(markup, raw string)

	ClearInput()
	ShowThinking()
	HideThinking()
	SetControlsEnabled(enabled bool)
	FocusInput()
	HideQuickReplies()
}

// NopView discards every event
type NopView struct{}

func (NopView) ShowBody()                             {}
func (NopView) HideBody()                             {}
func (NopView) AppendUserMessage(string)              {}
func (NopView) AppendAssistantMessage(string, string) {}
func (NopView) ClearInput()                           {}
func (NopView) ShowThinking()                         {}
func (NopView) HideThinking()                         {}
func (NopView) SetControlsEnabled(bool)               {}
func (NopView) FocusInput()                           {}
func (NopView) HideQuickReplies()                     {}
