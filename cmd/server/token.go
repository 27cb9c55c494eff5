package main

import (
	"errors"
	"fmt"
	"time"

	"debatearena/config"
	"debatearena/middlewares"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for a user id (local testing)",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().String("user", "", "User id to embed (required)")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}

func runToken(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	userID, _ := cmd.Flags().GetString("user")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if userID == "" {
		return errors.New("--user is required")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret is not configured")
	}

	token, err := middlewares.GenerateToken(cfg.JWT.Secret, userID, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
