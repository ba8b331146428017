package widget

import (
	"strconv"
	"sync"
)

// EventKind names one View call
type EventKind string

const (
	EventShowBody         EventKind = "show_body"
	EventHideBody         EventKind = "hide_body"
	EventUserMessage      EventKind = "user_message"
	EventAssistantMessage EventKind = "assistant_message"
	EventClearInput       EventKind = "clear_input"
	EventShowThinking     EventKind = "show_thinking"
	EventHideThinking     EventKind = "hide_thinking"
	EventControls         EventKind = "controls"
	EventFocusInput       EventKind = "focus_input"
	EventHideQuickReplies EventKind = "hide_quick_replies"
)

// Event is a recorded View call. Text holds the message for message
// events and "true"/"false" for EventControls.
type Event struct {
	Kind EventKind `json:"kind"`
	Text string    `json:"text,omitempty"`
	Raw  string    `json:"raw,omitempty"`
}

// Recorder is a View that keeps every event in order. It can wrap another
// View so events are both rendered and recorded; the host server uses it
// to tell script clients what changed.
type Recorder struct {
	next View

	mu     sync.Mutex
	events []Event
}

// NewRecorder creates a recorder forwarding to next (which may be nil)
func NewRecorder(next View) *Recorder {
	if next == nil {
		next = NopView{}
	}
	return &Recorder{next: next}
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Drain returns the recorded events and forgets them
func (r *Recorder) Drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

// Kinds returns only the kinds of the recorded events
func (r *Recorder) Kinds() []EventKind {
	events := r.Events()
	kinds := make([]EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Count returns how many events of kind were recorded
func (r *Recorder) Count(kind EventKind) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Recorder) ShowBody() {
	r.record(Event{Kind: EventShowBody})
	r.next.ShowBody()
}

func (r *Recorder) HideBody() {
	r.record(Event{Kind: EventHideBody})
	r.next.HideBody()
}

func (r *Recorder) AppendUserMessage(text string) {
	r.record(Event{Kind: EventUserMessage, Text: text})
	r.next.AppendUserMessage(text)
}

func (r *Recorder) AppendAssistantMessage(markup, raw string) {
	r.record(Event{Kind: EventAssistantMessage, Text: markup, Raw: raw})
	r.next.AppendAssistantMessage(markup, raw)
}

func (r *Recorder) ClearInput() {
	r.record(Event{Kind: EventClearInput})
	r.next.ClearInput()
}

func (r *Recorder) ShowThinking() {
	r.record(Event{Kind: EventShowThinking})
	r.next.ShowThinking()
}

func (r *Recorder) HideThinking() {
	r.record(Event{Kind: EventHideThinking})
	r.next.HideThinking()
}

func (r *Recorder) SetControlsEnabled(enabled bool) {
	r.record(Event{Kind: EventControls, Text: strconv.FormatBool(enabled)})
	r.next.SetControlsEnabled(enabled)
}

func (r *Recorder) FocusInput() {
	r.record(Event{Kind: EventFocusInput})
	r.next.FocusInput()
}

func (r *Recorder) HideQuickReplies() {
	r.record(Event{Kind: EventHideQuickReplies})
	r.next.HideQuickReplies()
}
