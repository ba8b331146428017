package widget

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chat-widget/internal/chatapi"
	"chat-widget/internal/format"
	"chat-widget/internal/history"
)

// DefaultFallbackMessage is rendered when a round-trip fails and no
// other message was configured
const DefaultFallbackMessage = "I apologize, but I'm having trouble connecting right now. " +
	"Please try again later or contact us directly at inquire@maticstudio.net."

// Sender performs the chat round-trip. *chatapi.Client implements it.
type Sender interface {
	Chat(ctx context.Context, req chatapi.Request) (*chatapi.Response, error)
}

// State is a point-in-time copy of a controller's state
type State struct {
	Visible            bool
	SessionID          string
	Turns              []history.Turn
	InFlight           bool
	QuickRepliesHidden bool
}

// Controller owns the state of one widget instance: body visibility, the
// session identifier, the transcript and the in-flight guard. It drives a
// View but never renders anything itself.
type Controller struct {
	client   Sender
	view     View
	fallback string
	now      func() time.Time
	logger   zerolog.Logger

	mu                 sync.Mutex
	visible            bool
	sessionID          string
	inFlight           bool
	quickRepliesHidden bool
	transcript         *history.Transcript
}

// Option configures a Controller
type Option func(*Controller)

// WithView sets the view receiving render events
func WithView(v View) Option {
	return func(c *Controller) {
		if v != nil {
			c.view = v
		}
	}
}

// WithFallbackMessage overrides the apology shown on failed round-trips
func WithFallbackMessage(msg string) Option {
	return func(c *Controller) {
		if msg != "" {
			c.fallback = msg
		}
	}
}

// WithClock replaces time.Now, used for session identifiers
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithLogger sets the logger used for transport diagnostics
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New creates a controller in the Hidden/Idle state
func New(client Sender, opts ...Option) *Controller {
	c := &Controller{
		client:     client,
		view:       NopView{},
		fallback:   DefaultFallbackMessage,
		now:        time.Now,
		logger:     log.Logger,
		transcript: history.NewTranscript(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Toggle flips body visibility. The first Hidden to Visible transition
// assigns a session identifier; later ones keep it.
func (c *Controller) Toggle() {
	c.mu.Lock()
	c.visible = !c.visible
	visible := c.visible
	if visible && c.sessionID == "" {
		c.sessionID = history.NewSessionID(c.now())
		c.logger.Debug().Str("session_id", c.sessionID).Msg("session started")
	}
	c.mu.Unlock()

	if visible {
		c.view.ShowBody()
	} else {
		c.view.HideBody()
	}
}

// SendMessage submits free text typed by the user. It blocks until the
// round-trip settles and reports whether a submission took place: empty
// text and calls made while another submission is in flight are ignored.
func (c *Controller) SendMessage(ctx context.Context, text string) bool {
	return c.submit(ctx, text, false)
}

// SendQuickReply submits a predefined reply. The first accepted quick
// reply hides the quick-reply group for good.
func (c *Controller) SendQuickReply(ctx context.Context, text string) bool {
	return c.submit(ctx, text, true)
}

// HandleKey routes a key press from the input field; Enter sends text
func (c *Controller) HandleKey(ctx context.Context, key, text string) bool {
	if !strings.EqualFold(key, "enter") {
		return false
	}
	return c.SendMessage(ctx, text)
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Visible:            c.visible,
		SessionID:          c.sessionID,
		Turns:              c.transcript.Turns(),
		InFlight:           c.inFlight,
		QuickRepliesHidden: c.quickRepliesHidden,
	}
}

func (c *Controller) submit(ctx context.Context, text string, quick bool) bool {
	message := strings.TrimSpace(text)
	if message == "" {
		return false
	}

	// Claiming the flag and reading the request state happen under one
	// lock so a concurrent submit can never slip in between.
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return false
	}
	c.inFlight = true
	hideQuickReplies := quick && !c.quickRepliesHidden
	if quick {
		c.quickRepliesHidden = true
	}
	req := chatapi.Request{
		Message:             message,
		ConversationHistory: c.transcript.Turns(),
	}
	if c.sessionID != "" {
		sessionID := c.sessionID
		req.SessionID = &sessionID
	}
	c.mu.Unlock()

	defer c.release()

	c.view.AppendUserMessage(message)
	if !quick {
		c.view.ClearInput()
	}
	c.view.ShowThinking()
	c.view.SetControlsEnabled(false)
	if hideQuickReplies {
		c.view.HideQuickReplies()
	}

	resp, err := c.call(ctx, req)

	c.view.HideThinking()

	if err != nil {
		c.logger.Error().Err(err).Msg("error sending message")
		c.view.AppendAssistantMessage(format.InlineHTML(c.fallback), c.fallback)
		return true
	}
	if !resp.Succeeded() {
		c.logger.Warn().
			Str("status", resp.Status).
			Str("error", resp.Error).
			Bool("has_reply", resp.Response != nil).
			Msg("chat service did not report success")
		c.view.AppendAssistantMessage(format.InlineHTML(c.fallback), c.fallback)
		return true
	}

	reply := resp.Reply()
	c.view.AppendAssistantMessage(format.InlineHTML(reply), reply)

	c.mu.Lock()
	c.transcript.AppendExchange(message, reply)
	if resp.SessionID != "" {
		c.sessionID = resp.SessionID
	}
	c.mu.Unlock()

	return true
}

// call invokes the sender, turning a panic inside it into an error so the
// failure branch renders the fallback like any other error
func (c *Controller) call(ctx context.Context, req chatapi.Request) (resp *chatapi.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = errors.Errorf("chat call panicked: %v", r)
		}
	}()
	resp, err = c.client.Chat(ctx, req)
	if err == nil && resp == nil {
		err = errors.New("chat call returned no response")
	}
	return resp, err
}

// release runs on every exit path of an accepted submission
func (c *Controller) release() {
	c.view.SetControlsEnabled(true)
	c.view.FocusInput()

	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}
