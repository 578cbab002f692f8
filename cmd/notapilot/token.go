package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"notapilot/internal/auth"
	"notapilot/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin token for a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		// minting needs only the signing secret
		cfg, err := config.Load()
		if err != nil && !errors.Is(err, config.ErrMissingDatabaseURL) {
			return err
		}
		tenant, _ := cmd.Flags().GetString("tenant")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		tok, err := auth.NewJWT(cfg.AdminJWTSecret).Sign(tenant, ttl)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}
