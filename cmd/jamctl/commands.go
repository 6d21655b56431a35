package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rexliu/jamctl/pkg/control"
)

// callAndPrint runs method and prints its result.
func callAndPrint(cmd *cobra.Command, flags *connFlags, method string, params any) error {
	result, err := rpcCall(cmd.Context(), flags, method, params)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func newCallCmd(flags *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "call <method> [params-json]",
		Short: "Send a raw JSON-RPC request",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params any
			if len(args) == 2 {
				raw := json.RawMessage(args[1])
				if !json.Valid(raw) {
					return fmt.Errorf("params are not valid JSON")
				}
				params = raw
			}
			return callAndPrint(cmd, flags, args[0], params)
		},
	}
}

func newProfileCmd(flags *connFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the server profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAndPrint(cmd, flags, control.MethodGetServerProfile, nil)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set-name <name>",
			Short: "Rename the server",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return callAndPrint(cmd, flags, control.MethodSetServerName, map[string]any{"serverName": args[0]})
			},
		},
		&cobra.Command{
			Use:   "set-welcome <message>",
			Short: "Replace the welcome message",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return callAndPrint(cmd, flags, control.MethodSetWelcomeMessage, map[string]any{"welcomeMessage": args[0]})
			},
		},
	)
	return cmd
}

func newClientsCmd(flags *connFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List connected clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := rpcCall(cmd.Context(), flags, control.MethodGetClients, nil)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), raw)
			}
			var res control.ClientsResult
			if err := json.Unmarshal(raw, &res); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tADDRESS\tNAME\tINSTRUMENT\tCOUNTRY\tSKILL")
			for _, c := range res.Clients {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Address, c.Name, c.InstrumentName, c.CountryName, c.SkillLevelName)
			}
			fmt.Fprintf(tw, "%d connected\n", res.Connections)
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result")
	return cmd
}

func newFirewallCmd(flags *connFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "firewall",
		Short: "Inspect and edit the access-control list",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show mode and listed addresses",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return callAndPrint(cmd, flags, control.MethodGetFirewallStatus, nil)
			},
		},
		&cobra.Command{
			Use:   "add <address>...",
			Short: "List one or more addresses",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if len(args) == 1 {
					return callAndPrint(cmd, flags, control.MethodAddFirewallAddress, map[string]any{"address": args[0]})
				}
				return callAndPrint(cmd, flags, control.MethodAddFirewallAddresses, map[string]any{"addresses": args})
			},
		},
		&cobra.Command{
			Use:   "remove <address>",
			Short: "Unlist an address",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return callAndPrint(cmd, flags, control.MethodRemoveFirewallAddress, map[string]any{"address": args[0]})
			},
		},
		&cobra.Command{
			Use:   "mode <open|closed>",
			Short: "Set the access-control mode",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mode, err := parseFirewallMode(args[0])
				if err != nil {
					return err
				}
				return callAndPrint(cmd, flags, control.MethodSetFirewallMode, map[string]any{"mode": int(mode)})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Open mode with an empty list",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return callAndPrint(cmd, flags, control.MethodResetFirewall, nil)
			},
		},
	)
	return cmd
}

func parseFirewallMode(s string) (control.FirewallMode, error) {
	switch s {
	case "open":
		return control.FirewallOpen, nil
	case "closed":
		return control.FirewallClosed, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("mode must be open, closed, 0 or 1")
	}
	return control.FirewallMode(n), nil
}

func newRecordingCmd(flags *connFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recording",
		Short: "Control the session recorder",
	}
	simple := func(use, short, method string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return callAndPrint(cmd, flags, method, nil)
			},
		}
	}
	cmd.AddCommand(
		simple("status", "Show recorder state", control.MethodGetRecorderStatus),
		simple("start", "Enable recording", control.MethodStartRecording),
		simple("stop", "Disable recording", control.MethodStopRecording),
		simple("restart", "Start a new recording session", control.MethodRestartRecording),
		&cobra.Command{
			Use:   "dir <path>",
			Short: "Change the recording directory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return callAndPrint(cmd, flags, control.MethodSetRecordingDirectory, map[string]any{"recordingDirectory": args[0]})
			},
		},
	)
	return cmd
}
