package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/littlelifetrip/ai-recommender/internal/config"
	"github.com/littlelifetrip/ai-recommender/internal/server"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for calling the API",
	Long: `Sign a token with JWT_SECRET_KEY and JWT_ALGORITHM for a calling service or for local testing.

A zero --ttl uses JWT_EXPIRATION_HOURS.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject, usually the calling service name (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	jwtService, err := server.NewJWTService(jwtCfg)
	if err != nil {
		return err
	}
	token, err := jwtService.GenerateToken(tokenSubject, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
