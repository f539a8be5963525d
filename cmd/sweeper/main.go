package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		databaseURL string
		dryRun      bool
	)

	root := &cobra.Command{
		Use:           "sweeper",
		Short:         "Delete expired notifications and report how many were removed",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), cmd.OutOrStdout(), databaseURL, dryRun)
		},
	}

	root.Flags().StringVar(&databaseURL, "database-url", "", "connection string (default: $SWEEPER_DATABASE_URL, then DB_* settings)")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "count expired notifications without deleting them")

	return root
}
