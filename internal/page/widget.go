// Package page mounts the chat widget into a host HTML document and keeps
// the document in sync with a widget.Controller.
package page

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"chat-widget/internal/config"
	"chat-widget/internal/widget"
)

const thinkingText = "🤖 Thinking..."

// DefaultHost is a bare host page used when none is supplied
const DefaultHost = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>Chat</title></head><body></body></html>`

var (
	ErrAlreadyMounted    = errors.New("an element with the widget container id already exists")
	ErrNotBound          = errors.New("widget is not bound to a controller")
	ErrUnknownAction     = errors.New("unknown widget action")
	ErrUnknownQuickReply = errors.New("unknown quick reply")
)

// Event actions routed by Dispatch
const (
	ActionToggle     = "toggle"
	ActionSend       = "send"
	ActionQuickReply = "quick-reply"
	ActionKeyPress   = "keypress"
)

// Event is a user interaction with the mounted widget
type Event struct {
	Action string `json:"action"`
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Options controls the generated markup
type Options struct {
	ContainerID  string
	Title        string
	StatusText   string
	Greeting     string
	QuickReplies []string
	// EventsURL is the form target used when the page is served without
	// script; interactions post their Event fields there
	EventsURL string
}

// OptionsFromConfig builds markup options from the widget configuration
func OptionsFromConfig(cfg *config.Config, eventsURL string) Options {
	return Options{
		ContainerID:  cfg.ContainerID,
		Title:        cfg.Title,
		StatusText:   cfg.StatusText,
		Greeting:     cfg.Greeting,
		QuickReplies: cfg.QuickReplies,
		EventsURL:    eventsURL,
	}
}

// RenderedMessage is one message bubble currently in the message list
type RenderedMessage struct {
	Class string `json:"class"` // "user-message" or "bot-message"
	HTML  string `json:"html"`
}

// Widget is the mounted widget. It implements widget.View by mutating the
// host document. All methods are safe for concurrent use.
type Widget struct {
	opts Options

	mu           sync.Mutex
	doc          *html.Node
	body         *html.Node
	messages     *html.Node
	quickReplies *html.Node
	input        *html.Node
	sendButton   *html.Node
	repliesGone  bool

	ctrl *widget.Controller
}

var _ widget.View = (*Widget)(nil)

// ParseHost parses a host page
func ParseHost(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse host page")
	}
	return doc, nil
}

// Mount inserts the widget container at the end of <body> and its
// stylesheet at the end of <head>. The widget body starts collapsed.
func Mount(doc *html.Node, opts Options) (*Widget, error) {
	if findByID(doc, opts.ContainerID) != nil {
		return nil, errors.Wrapf(ErrAlreadyMounted, "id %q", opts.ContainerID)
	}

	head := findElement(doc, atom.Head)
	body := findElement(doc, atom.Body)
	if head == nil || body == nil {
		return nil, errors.New("host page has no head or body")
	}

	nodes, err := html.ParseFragment(strings.NewReader(widgetMarkup(opts)), body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build widget markup")
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	style := newElement(atom.Style)
	style.AppendChild(newText(stylesheet))
	head.AppendChild(style)

	w := &Widget{
		opts:         opts,
		doc:          doc,
		body:         findByID(doc, opts.ContainerID+"-body"),
		messages:     findByID(doc, opts.ContainerID+"-messages"),
		quickReplies: findByID(doc, opts.ContainerID+"-quick-replies"),
		input:        findByID(doc, opts.ContainerID+"-input"),
		sendButton:   findByID(doc, opts.ContainerID+"-send"),
	}
	if w.body == nil || w.messages == nil || w.quickReplies == nil || w.input == nil || w.sendButton == nil {
		return nil, errors.New("widget markup is incomplete")
	}
	return w, nil
}

// Bind registers the controller that receives this widget's events
func (w *Widget) Bind(ctrl *widget.Controller) {
	w.mu.Lock()
	w.ctrl = ctrl
	w.mu.Unlock()
}

// Dispatch routes one interaction to the bound controller. Sends block
// until the round-trip settles.
func (w *Widget) Dispatch(ctx context.Context, ev Event) error {
	w.mu.Lock()
	ctrl := w.ctrl
	if ev.Action == ActionSend || ev.Action == ActionKeyPress {
		if ev.Value != "" {
			setAttr(w.input, "value", ev.Value)
		}
	}
	inputValue := getAttr(w.input, "value")
	repliesGone := w.repliesGone
	w.mu.Unlock()

	if ctrl == nil {
		return ErrNotBound
	}

	switch ev.Action {
	case ActionToggle:
		ctrl.Toggle()
	case ActionSend:
		ctrl.SendMessage(ctx, inputValue)
	case ActionKeyPress:
		ctrl.HandleKey(ctx, ev.Key, inputValue)
	case ActionQuickReply:
		if repliesGone {
			return nil
		}
		if !w.isQuickReply(ev.Value) {
			return errors.Wrapf(ErrUnknownQuickReply, "%q", ev.Value)
		}
		ctrl.SendQuickReply(ctx, ev.Value)
	default:
		return errors.Wrapf(ErrUnknownAction, "%q", ev.Action)
	}
	return nil
}

func (w *Widget) isQuickReply(v string) bool {
	for _, q := range w.opts.QuickReplies {
		if q == v {
			return true
		}
	}
	return false
}

// Render writes the whole host document
func (w *Widget) Render(out io.Writer) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := html.Render(out, w.doc); err != nil {
		return errors.Wrap(err, "failed to render page")
	}
	return nil
}

// Messages lists the rendered message bubbles in order
func (w *Widget) Messages() []RenderedMessage {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []RenderedMessage
	for c := w.messages.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || !hasClass(c, "message") {
			continue
		}
		class := "bot-message"
		if hasClass(c, "user-message") {
			class = "user-message"
		}
		out = append(out, RenderedMessage{Class: class, HTML: innerHTML(c)})
	}
	return out
}

// BodyVisible reports whether the collapsible body is shown
func (w *Widget) BodyVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !strings.Contains(getAttr(w.body, "style"), "display: none")
}

// QuickRepliesVisible reports whether the quick-reply group is shown
func (w *Widget) QuickRepliesVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.repliesGone
}

// ControlsEnabled reports whether input and send button accept interaction
func (w *Widget) ControlsEnabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !hasAttr(w.input, "disabled") && !hasAttr(w.sendButton, "disabled")
}

// InputValue returns the current text of the input field
func (w *Widget) InputValue() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return getAttr(w.input, "value")
}

// Thinking reports whether the typing indicator is present
func (w *Widget) Thinking() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return findByID(w.messages, w.opts.ContainerID+"-typing") != nil
}

func (w *Widget) ShowBody() {
	w.mu.Lock()
	defer w.mu.Unlock()
	setAttr(w.body, "style", "display: block;")
}

func (w *Widget) HideBody() {
	w.mu.Lock()
	defer w.mu.Unlock()
	setAttr(w.body, "style", "display: none;")
}

func (w *Widget) AppendUserMessage(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	div := newElement(atom.Div, html.Attribute{Key: "class", Val: "message user-message"})
	div.AppendChild(newText(text))
	w.messages.AppendChild(div)
}

func (w *Widget) AppendAssistantMessage(markup, raw string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	div := newElement(atom.Div, html.Attribute{Key: "class", Val: "message bot-message"})
	nodes, err := html.ParseFragment(strings.NewReader(markup), div)
	if err != nil {
		// keep the reply readable even if the markup does not parse
		div.AppendChild(newText(raw))
	} else {
		for _, n := range nodes {
			div.AppendChild(n)
		}
	}
	w.messages.AppendChild(div)
}

func (w *Widget) ClearInput() {
	w.mu.Lock()
	defer w.mu.Unlock()
	setAttr(w.input, "value", "")
}

func (w *Widget) ShowThinking() {
	w.mu.Lock()
	defer w.mu.Unlock()

	div := newElement(atom.Div,
		html.Attribute{Key: "class", Val: "typing-indicator"},
		html.Attribute{Key: "id", Val: w.opts.ContainerID + "-typing"},
	)
	div.AppendChild(newText(thinkingText))
	w.messages.AppendChild(div)
}

func (w *Widget) HideThinking() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n := findByID(w.messages, w.opts.ContainerID+"-typing"); n != nil {
		n.Parent.RemoveChild(n)
	}
}

func (w *Widget) SetControlsEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, n := range []*html.Node{w.input, w.sendButton} {
		if enabled {
			removeAttr(n, "disabled")
		} else {
			setAttr(n, "disabled", "")
		}
	}
}

func (w *Widget) FocusInput() {
	w.mu.Lock()
	defer w.mu.Unlock()
	setAttr(w.input, "autofocus", "")
}

func (w *Widget) HideQuickReplies() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.repliesGone = true
	setAttr(w.quickReplies, "style", "display: none;")
}

// widgetMarkup builds the container subtree. Interactions are declared
// with data-action attributes and, for script-less hosts, small forms
// posting to EventsURL.
func widgetMarkup(o Options) string {
	esc := html.EscapeString
	id := esc(o.ContainerID)

	formOpen := func() string {
		if o.EventsURL == "" {
			return ""
		}
		return fmt.Sprintf(`<form method="post" action="%s">`, esc(o.EventsURL))
	}
	formClose := func() string {
		if o.EventsURL == "" {
			return ""
		}
		return `</form>`
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<div id="%s" class="maticstudio-chat-widget">`, id)

	sb.WriteString(`<div class="chat-header">`)
	fmt.Fprintf(&sb, `<div class="chat-title"><h3>%s</h3><span class="status-indicator">%s</span></div>`,
		esc(o.Title), esc(o.StatusText))
	sb.WriteString(formOpen())
	fmt.Fprintf(&sb, `<button type="submit" class="chat-toggle" name="action" value="%s" data-action="%s">%s</button>`,
		ActionToggle, ActionToggle, toggleIcon)
	sb.WriteString(formClose())
	sb.WriteString(`</div>`)

	fmt.Fprintf(&sb, `<div class="chat-body" id="%s-body" style="display: none;">`, id)

	fmt.Fprintf(&sb, `<div class="chat-messages" id="%s-messages">`, id)
	fmt.Fprintf(&sb, `<div class="message bot-message"><p>%s</p></div>`, esc(o.Greeting))
	sb.WriteString(`</div>`)

	fmt.Fprintf(&sb, `<div class="quick-replies" id="%s-quick-replies">`, id)
	sb.WriteString(formOpen())
	if o.EventsURL != "" {
		fmt.Fprintf(&sb, `<input type="hidden" name="action" value="%s">`, ActionQuickReply)
	}
	for _, q := range o.QuickReplies {
		fmt.Fprintf(&sb, `<button type="submit" class="quick-reply-btn" name="value" value="%s" data-action="%s" data-message="%s">%s</button>`,
			esc(q), ActionQuickReply, esc(q), esc(q))
	}
	sb.WriteString(formClose())
	sb.WriteString(`</div>`)

	sb.WriteString(`<div class="chat-input">`)
	sb.WriteString(formOpen())
	if o.EventsURL != "" {
		fmt.Fprintf(&sb, `<input type="hidden" name="action" value="%s">`, ActionSend)
	}
	fmt.Fprintf(&sb, `<input type="text" id="%s-input" name="value" placeholder="Type your message..." autocomplete="off" data-action="%s">`,
		id, ActionKeyPress)
	fmt.Fprintf(&sb, `<button type="submit" id="%s-send" data-action="%s">%s</button>`, id, ActionSend, sendIcon)
	sb.WriteString(formClose())
	sb.WriteString(`</div>`)

	sb.WriteString(`</div>`) // chat-body
	sb.WriteString(`</div>`) // container
	return sb.String()
}
