package terminal

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"chat-widget/internal/widget"
)

// Session is the line-mode conversation loop
type Session struct {
	Controller   *widget.Controller
	Display      *Display
	Input        *Reader
	QuickReplies []string
}

// Run reads input until /exit, EOF or ctx is cancelled. Every non-command
// line goes through the controller, so the terminal sees exactly the
// render events a page would.
func (s *Session) Run(ctx context.Context) error {
	defer s.Display.Cleanup()

	for {
		if ctx.Err() != nil {
			break
		}

		s.Display.PrintPrompt()
		line, err := s.Input.ReadUserInput()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return errors.Wrap(err, "failed to read input")
		}

		cmd, err := ParseCommand(line)
		if err != nil {
			s.Display.PrintWarning(err.Error())
			continue
		}

		switch cmd.Kind {
		case CommandExit:
			s.Display.PrintGoodbye()
			return nil
		case CommandOpen:
			s.Controller.Toggle()
		case CommandHistory:
			s.Display.PrintHistory(s.Controller.Snapshot().Turns)
		case CommandQuick:
			if s.Controller.Snapshot().QuickRepliesHidden {
				s.Display.PrintWarning("Quick replies are no longer available")
				continue
			}
			if cmd.Index > len(s.QuickReplies) {
				s.Display.PrintWarning(fmt.Sprintf("No quick reply %d", cmd.Index))
				continue
			}
			s.Controller.SendQuickReply(ctx, s.QuickReplies[cmd.Index-1])
		default:
			if !s.Controller.SendMessage(ctx, cmd.Text) {
				log.Debug().Msg("nothing sent")
			}
		}
	}

	s.Display.PrintGoodbye()
	return nil
}
