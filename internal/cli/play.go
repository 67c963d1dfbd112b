package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/tendril/internal/presentation/tui"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/runner"
)

// PlayOptions configures an interactive terminal conversation.
type PlayOptions struct {
	BotID     string
	SessionID string
	JSON      bool
	// Banner prints the ASCII banner before a text conversation.
	Banner bool
	In     io.Reader
	Out    io.Writer
}

// Play runs a conversation on the terminal and returns the session id so it
// can be resumed.
func Play(ctx context.Context, app *App, opts PlayOptions) (string, error) {
	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		if opts.Banner {
			tui.PrintBanner(opts.Out)
		}
		handler = runner.NewTextHandler(opts.In, opts.Out, runner.WithTextHandlerRenderer(tui.NewRenderer()))
	}

	sessionID, err := app.Runner.Run(ctx, opts.BotID, opts.SessionID, handler)
	if err != nil && errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		if errors.Is(err, domain.ErrSessionEnded) {
			return sessionID, fmt.Errorf("session %q already ended; start a new one", opts.SessionID)
		}
		return sessionID, err
	}

	app.Logger.Info("Session paused or finished", "session_id", sessionID, "bot_id", opts.BotID)
	return sessionID, nil
}
