package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the preset service",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := presetsClient.Health(context.Background())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), map[string]string{"status": status}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Health: %s\n", status)
		}

		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}
