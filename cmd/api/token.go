package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tomlord1122/space-todo/internal/policy"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Print a signed access token for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not configured")
	}
	tok, err := policy.IssueToken(cfg.JWTSecret, args[0], tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
