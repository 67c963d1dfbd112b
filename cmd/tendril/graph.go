package main

import (
	"fmt"

	"github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/aretw0/tendril/pkg/validator"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file|bot-id>",
	Short: "Export the flow graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the bot, flagging nodes with integrity issues.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bot, err := resolveBot(cmd, args[0])
		if err != nil {
			return err
		}
		overlay := &graph.GraphOverlay{FlaggedNodes: validator.Check(bot).NodeIDs()}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(bot, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
