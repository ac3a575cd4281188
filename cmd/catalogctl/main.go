package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "catalogctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Operator CLI for the product catalog",
		Long: `catalogctl runs maintenance tasks against the catalog databases using the same
environment configuration as the API: offline exports, index creation and admin seeding.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newExportCmd(),
		newIndexesCmd(),
		newAdminCmd(),
	)
	return cmd
}
