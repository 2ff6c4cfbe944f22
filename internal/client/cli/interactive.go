package cli

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/botdesk/botdesk/internal/client/tui"
	"github.com/botdesk/botdesk/pkg/logger"
)

// runInteractive runs a full-screen view. Log lines would tear the screen,
// so the global logger is muted until the view exits.
func runInteractive(ctx context.Context, model tea.Model) error {
	prev := *logger.Get()
	logger.SetOutput(io.Discard)
	defer func() { *logger.Get() = prev }()

	return tui.Run(ctx, model)
}
