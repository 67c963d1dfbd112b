package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/tendril/pkg/apikey"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys for the chat endpoint",
}

var keysIssueCmd = &cobra.Command{
	Use:   "issue <bot-id>",
	Short: "Mint an API key scoped to one bot",
	Long:  `Signs an HS256 key with auth.secret. The key only authorizes conversations with the given bot.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Auth.Secret == "" {
			return errors.New("auth.secret is not configured (set TENDRIL_AUTH_SECRET)")
		}
		keys, err := apikey.New(cfg.Auth.Secret, cfg.Auth.Issuer)
		if err != nil {
			return err
		}

		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		token, err := keys.Issue(args[0], subject, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var keysVerifyCmd = &cobra.Command{
	Use:   "verify <key>",
	Short: "Check a key and print its claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		keys, err := apikey.New(cfg.Auth.Secret, cfg.Auth.Issuer)
		if err != nil {
			return err
		}
		claims, err := keys.Verify(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "bot: %s\nsubject: %s\n", claims.BotID, claims.Subject)
		if claims.ExpiresAt != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "expires: %s\n", claims.ExpiresAt.Time.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysIssueCmd)
	keysCmd.AddCommand(keysVerifyCmd)

	keysIssueCmd.Flags().String("subject", "playground", "Subject recorded in the key")
	keysIssueCmd.Flags().Duration("ttl", 0, "Key lifetime (0 never expires)")
}
