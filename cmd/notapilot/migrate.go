package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notapilot/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := db.AutoMigrateAndIndexes(a.db); err != nil {
			return err
		}
		fmt.Println("migrations applied")
		return nil
	},
}
