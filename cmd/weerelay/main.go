package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lcrown/weerelay/internal/config"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "weerelay",
		Short:         "Terminal client for the WeeChat relay protocol",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newConnectCmd(),
		newConfigCmd(),
		newTargetsCmd(),
		newVersionCmd(),
	)
	return root
}

func newConnectCmd() *cobra.Command {
	opts := connectOptions{}
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a relay and mirror its buffers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "path to a relay TOML config")
	f.StringVarP(&opts.Target, "target", "t", "", "saved target name from targets.toml")
	f.StringVar(&opts.Host, "host", "", "relay host (overrides config)")
	f.IntVar(&opts.Port, "port", 0, "relay port (overrides config)")
	f.StringVar(&opts.Password, "password", "", "relay password (or WEERELAY_PASSWORD)")
	f.StringVar(&opts.TOTP, "totp", "", "one-time password for relay totp auth")
	f.BoolVar(&opts.WebSocket, "websocket", false, "connect over the relay's WebSocket endpoint")
	f.BoolVar(&opts.TLS, "tls", false, "wrap the transport in TLS")
	f.BoolVar(&opts.NoReconnect, "no-reconnect", false, "exit instead of retrying after an unexpected close")
	f.StringVar(&opts.MetricsAddr, "metrics", "", "serve Prometheus metrics on this address")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage relay config files",
	}
	var overwrite bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a starter relay config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], overwrite); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "weerelay %s\n", version)
		},
	}
}
