package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run one dispatch invocation and print the summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		source, _ := cmd.Flags().GetString("source")

		ctx := cmd.Context()
		sum, err := a.dispatcher(a.runStream(ctx)).Run(ctx, source)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	},
}
