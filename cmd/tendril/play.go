package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play <bot-id>",
	Short: "Chat with a bot in the terminal",
	Long: `Starts a playground conversation with a stored bot. Answer with an option
number or id, type free text at input nodes, ':back' or ':end' for the controls
and 'exit' to pause. Pass --session to resume a paused conversation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		sessionID, _ := cmd.Flags().GetString("session")
		jsonMode, _ := cmd.Flags().GetBool("json")

		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		id, err := cli.Play(ctx, app, cli.PlayOptions{
			BotID:     args[0],
			SessionID: sessionID,
			JSON:      jsonMode,
			Banner:    term.IsTerminal(int(os.Stdout.Fd())),
			In:        cmd.InOrStdin(),
			Out:       cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}
		if !jsonMode && id != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), ">>> Session '%s' saved. Resume with: tendril play %s --session %s\n", id, args[0], id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringP("session", "s", "", "Resume an existing session")
	playCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
}
