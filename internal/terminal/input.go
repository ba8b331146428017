package terminal

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// ErrBadCommand is returned for malformed slash commands
var ErrBadCommand = errors.New("bad command")

// Command kinds understood by the line-mode loop
const (
	CommandNone    = ""
	CommandOpen    = "open"
	CommandQuick   = "quick"
	CommandHistory = "history"
	CommandExit    = "exit"
)

// Command is a parsed input line
type Command struct {
	Kind  string
	Index int // 1-based quick reply number
	Text  string
}

// Reader reads lines of user input
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for line input
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadUserInput reads a line of input from the user
func (r *Reader) ReadUserInput() (string, error) {
	input, err := r.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}

	// Trim the newline only; the controller trims the message itself
	return strings.TrimRight(input, "\r\n"), nil
}

// ParseCommand splits slash commands from chat text
func ParseCommand(line string) (Command, error) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "/exit" || trimmed == "/quit" || trimmed == "exit" || trimmed == "quit":
		return Command{Kind: CommandExit}, nil
	case trimmed == "/open" || trimmed == "/toggle":
		return Command{Kind: CommandOpen}, nil
	case trimmed == "/history":
		return Command{Kind: CommandHistory}, nil
	case strings.HasPrefix(trimmed, "/quick"):
		arg := strings.TrimSpace(strings.TrimPrefix(trimmed, "/quick"))
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return Command{}, errors.Wrapf(ErrBadCommand, "usage: /quick N, got %q", trimmed)
		}
		return Command{Kind: CommandQuick, Index: n}, nil
	}
	return Command{Kind: CommandNone, Text: line}, nil
}

// IsTerminal checks if the file is an interactive terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or fallback when unknown
func Width(f *os.File, fallback int) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
