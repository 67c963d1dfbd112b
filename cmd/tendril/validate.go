package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/tendril/pkg/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|bot-id>",
	Short: "Check a bot graph for consistency",
	Long: `Reports structural errors (duplicate ids, too many options, input nodes with
options) and integrity warnings (dangling targets, unwired options, orphan and
unreachable nodes). Exits non-zero when the graph has errors.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bot, err := resolveBot(cmd, args[0])
		if err != nil {
			return err
		}
		report := validator.Check(bot)

		out := cmd.OutOrStdout()
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			for _, issue := range report.Errors {
				fmt.Fprintf(out, "ERROR   %-20s %s\n", issue.Code, issue.Message)
			}
			for _, issue := range report.Warnings {
				fmt.Fprintf(out, "WARNING %-20s %s\n", issue.Code, issue.Message)
			}
		}

		if err := report.Err(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if !asJSON {
			fmt.Fprintln(out, "Graph is valid! ✅")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().Bool("json", false, "Print the report as JSON")
}
