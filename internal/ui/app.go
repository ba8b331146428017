package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"chat-widget/internal/config"
	"chat-widget/internal/widget"
)

// Run starts the full-screen chat widget and blocks until the user quits
// or ctx is cancelled
func Run(ctx context.Context, cfg *config.Config, client widget.Sender, logger zerolog.Logger) error {
	bridge := NewBridge()
	ctrl := widget.New(client,
		widget.WithView(bridge),
		widget.WithFallbackMessage(cfg.FallbackMessage()),
		widget.WithLogger(logger),
	)

	m := NewModel(ctx, OptionsFromConfig(cfg), ctrl, bridge.Events())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(err, "chat UI failed")
	}
	return nil
}
