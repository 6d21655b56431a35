package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rexliu/jamctl/pkg/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "jamd",
		Short:        "Media server control daemon",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the server and its JSON-RPC control listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New("jamd")
			logger.Printf("starting daemon with profile %s", profile)
			if err := run(cmd.Context(), profile, logger); err != nil {
				logger.Errorf("fatal error: %v", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "./_dev_profile", "Path to profile directory")
	return cmd
}
