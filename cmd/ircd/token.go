package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/intelligent-react-components/irc-server/internal/auth"
	"github.com/intelligent-react-components/irc-server/internal/config"
)

var tokenClientID string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token using the configured auth secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		jwtManager, err := auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.Issuer)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		token, err := jwtManager.GenerateToken(ctx, tokenClientID, cfg.AuthTTL())
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenClientID, "client-id", "dev", "client identity embedded in the token")
}
