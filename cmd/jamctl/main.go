package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rexliu/jamctl/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jamctl: %v\n", err)
		os.Exit(1)
	}
}

// connFlags locate and authenticate against a daemon. Explicit flags override
// the profile's config.toml.
type connFlags struct {
	profile    string
	network    string
	address    string
	codec      string
	secretFile string
}

func newRootCmd() *cobra.Command {
	flags := &connFlags{}
	root := &cobra.Command{
		Use:           "jamctl",
		Short:         "Control a running jamd over JSON-RPC",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.profile, "profile", "./_dev_profile", "Profile directory")
	pf.StringVar(&flags.network, "network", "", "Override rpc network (tcp|unix)")
	pf.StringVar(&flags.address, "address", "", "Override rpc address")
	pf.StringVar(&flags.codec, "codec", "", "Override rpc codec (line|frame)")
	pf.StringVar(&flags.secretFile, "secret-file", "", "Override rpc secret file")

	root.AddCommand(
		newInitCmd(flags),
		newDiagCmd(flags),
		newCallCmd(flags),
		newProfileCmd(flags),
		newClientsCmd(flags),
		newFirewallCmd(flags),
		newRecordingCmd(flags),
	)
	return root
}

func newInitCmd(flags *connFlags) *cobra.Command {
	var name string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a local profile (writes config.toml)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(flags.profile, 0o700); err != nil {
				return err
			}
			path := filepath.Join(flags.profile, config.FileName)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}
			cfg := config.DefaultProfile(name)
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized profile %s at %s\n", cfg.ProfileName, flags.profile)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "dev", "Profile name")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config if present")
	return cmd
}

func newDiagCmd(flags *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "diag",
		Short: "Print profile configuration paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadProfile(flags.profile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Profile: %s\n", cfg.ProfileName)
			fmt.Fprintf(out, "Config: %s\n", filepath.Join(flags.profile, config.FileName))
			fmt.Fprintf(out, "DB Path: %s\n", config.ResolvePath(flags.profile, cfg.Storage.DBPath))
			fmt.Fprintf(out, "RPC: %s %s (%s)\n", cfg.RPC.Network, cfg.RPC.Address, cfg.RPC.Codec)
			if cfg.Logging.FilePath != "" {
				fmt.Fprintf(out, "Log File: %s\n", config.ResolvePath(flags.profile, cfg.Logging.FilePath))
			}
			if cfg.EventLog.Enabled {
				fmt.Fprintf(out, "Event Log: %s\n", config.ResolvePath(flags.profile, cfg.EventLog.Path))
			}
			fmt.Fprintf(out, "Directory: %s\n", cfg.Directory.Type)
			return nil
		},
	}
}
