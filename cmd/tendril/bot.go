package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/tendril/pkg/adapters/file"
	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/validator"
	"github.com/spf13/cobra"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Import and export bot documents",
}

var botImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Store JSON or YAML bot documents in the configured repository",
	Long: `Normalizes each document and saves it. Documents with structural errors are
rejected; integrity warnings are printed but do not block the import.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		for _, path := range args {
			bot, err := resolveBot(cmd, path)
			if err != nil {
				return err
			}
			report := validator.Check(bot)
			if err := report.Err(); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := app.Repo.Save(cmd.Context(), bot); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(out, "Imported bot '%s' (%d nodes)\n", bot.ID, len(bot.Nodes))
			if summary := report.Summary(); summary != "" {
				fmt.Fprintln(out, summary)
			}
		}
		return nil
	},
}

var botExportCmd = &cobra.Command{
	Use:   "export <bot-id>",
	Short: "Print a stored bot in the server format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bot, err := resolveBot(cmd, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(codec.Serialize(bot))
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
	botCmd.AddCommand(botImportCmd)
	botCmd.AddCommand(botExportCmd)
}

// resolveBot loads ref as a bot document when it names a file, otherwise it
// looks ref up as a bot id in the configured repository.
func resolveBot(cmd *cobra.Command, ref string) (*domain.Bot, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		bot, err := file.LoadDocument(ref)
		if err != nil {
			return nil, err
		}
		if bot.ID == "" {
			bot.ID = strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref))
		}
		return bot, nil
	}

	app, err := loadApp(cmd)
	if err != nil {
		return nil, err
	}
	defer app.Close()
	return app.Repo.Get(cmd.Context(), ref)
}
