package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"chat-widget/internal/format"
	"chat-widget/internal/history"
	"chat-widget/internal/widget"
)

// Display renders the widget as plain scrolling terminal output. It is
// the renderer used when stdin is not a TTY.
type Display struct {
	out     io.Writer
	colors  bool
	spinner time.Duration

	mu            sync.Mutex
	spinnerActive bool
	spinnerDone   chan struct{}
	spinnerExited chan struct{}
	controlsOn    bool
}

var _ widget.View = (*Display)(nil)

// NewDisplay creates a new display instance
func NewDisplay(out io.Writer, colors bool) *Display {
	return &Display{
		out:        out,
		colors:     colors,
		spinner:    80 * time.Millisecond,
		controlsOn: true,
	}
}

// Color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

func (d *Display) paint(color, s string) string {
	if !d.colors {
		return s
	}
	return color + s + colorReset
}

func (d *Display) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

// PrintWelcome displays the header, greeting and quick replies
func (d *Display) PrintWelcome(title, status, greeting string, quickReplies []string) {
	d.printf("%s\n", d.paint(colorCyan, "╔════════════════════════════════════════╗"))
	d.printf("%s %s\n", d.paint(colorCyan, "║ "+title), d.paint(colorGray, status))
	d.printf("%s\n", d.paint(colorCyan, "╚════════════════════════════════════════╝"))
	d.printf("\n%s %s\n", d.paint(colorBlue, "Assistant:"), greeting)
	if len(quickReplies) > 0 {
		d.printf("\n%s\n", d.paint(colorGray, "Quick replies:"))
		for i, q := range quickReplies {
			d.printf("%s\n", d.paint(colorGray, fmt.Sprintf("  /quick %d  %s", i+1, q)))
		}
	}
	d.printf("%s\n\n", d.paint(colorGray, "Commands: /open | /quick N | /history | /exit"))
}

// PrintGoodbye displays the goodbye message
func (d *Display) PrintGoodbye() {
	d.printf("\n%s\n", d.paint(colorCyan, "Goodbye! 👋"))
}

// PrintInfo displays an info message
func (d *Display) PrintInfo(msg string) {
	d.printf("%s\n", d.paint(colorCyan, "ℹ "+msg))
}

// PrintWarning displays a warning message
func (d *Display) PrintWarning(msg string) {
	d.printf("%s\n", d.paint(colorYellow, "⚠ "+msg))
}

// PrintError displays an error message
func (d *Display) PrintError(err error) {
	d.printf("%s\n", d.paint(colorRed, fmt.Sprintf("✗ Error: %v", err)))
}

// PrintSeparator prints a visual separator
func (d *Display) PrintSeparator() {
	d.printf("%s\n", d.paint(colorGray, strings.Repeat("─", 60)))
}

// PrintHistory displays the full transcript
func (d *Display) PrintHistory(turns []history.Turn) {
	if len(turns) == 0 {
		d.PrintInfo("No conversation history yet")
		return
	}

	d.PrintSeparator()
	for _, turn := range turns {
		if turn.Role == history.RoleUser {
			d.printf("%s %s\n", d.paint(colorGreen, "You:"), turn.Content)
			continue
		}
		content := turn.Content
		if d.colors {
			content = format.InlineANSI(content)
		}
		d.printf("%s %s\n", d.paint(colorBlue, "Assistant:"), content)
	}
	d.PrintSeparator()
}

// PrintPrompt displays the user input prompt
func (d *Display) PrintPrompt() {
	if d.ControlsEnabled() {
		d.printf("\n%s", d.paint(colorGreen, "> "))
	}
}

// ControlsEnabled reports whether input is currently accepted
func (d *Display) ControlsEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.controlsOn
}

func (d *Display) ShowBody() {
	d.PrintInfo("Chat opened")
}

func (d *Display) HideBody() {
	d.PrintInfo("Chat minimised")
}

func (d *Display) AppendUserMessage(text string) {
	d.printf("%s %s\n", d.paint(colorGreen, "You:"), text)
}

// AppendAssistantMessage prints the raw reply with terminal emphasis;
// the HTML markup is meant for the page renderer
func (d *Display) AppendAssistantMessage(markup, raw string) {
	text := raw
	if d.colors {
		text = format.InlineANSI(raw)
	}
	lines := strings.Split(text, "\n")
	d.printf("%s %s\n", d.paint(colorBlue, "Assistant:"), lines[0])
	for _, l := range lines[1:] {
		d.printf("           %s\n", l)
	}
}

func (d *Display) ClearInput() {}

// ShowThinking starts the spinner placeholder
func (d *Display) ShowThinking() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.spinnerActive {
		return
	}

	d.spinnerActive = true
	d.spinnerDone = make(chan struct{})
	d.spinnerExited = make(chan struct{})

	if !d.colors {
		d.printf("🤖 Thinking...\n")
		close(d.spinnerExited)
		return
	}

	go func(done, exited chan struct{}) {
		defer close(exited)
		spinnerChars := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(d.spinner)
		defer ticker.Stop()
		i := 0
		for {
			fmt.Fprintf(d.out, "\r%s%s 🤖 Thinking...%s", colorCyan, spinnerChars[i], colorReset)
			i = (i + 1) % len(spinnerChars)
			select {
			case <-done:
				// Clear the spinner line
				fmt.Fprintf(d.out, "\r%s\r", clearLine())
				return
			case <-ticker.C:
			}
		}
	}(d.spinnerDone, d.spinnerExited)
}

// HideThinking stops the spinner and waits for it to clear its line
func (d *Display) HideThinking() {
	d.mu.Lock()
	if !d.spinnerActive {
		d.mu.Unlock()
		return
	}
	d.spinnerActive = false
	close(d.spinnerDone)
	exited := d.spinnerExited
	d.mu.Unlock()

	<-exited
}

func (d *Display) SetControlsEnabled(enabled bool) {
	d.mu.Lock()
	d.controlsOn = enabled
	d.mu.Unlock()
}

func (d *Display) FocusInput() {}

func (d *Display) HideQuickReplies() {
	d.printf("%s\n", d.paint(colorGray, "(quick replies used)"))
}

// Cleanup ensures the display is in a good state before exit
func (d *Display) Cleanup() {
	d.HideThinking()
}

// clearLine returns ANSI escape code to clear the current line
func clearLine() string {
	return "\033[2K"
}
