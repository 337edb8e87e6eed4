package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// targetsFile persists named relay endpoints so connecting to a known
// relay is `weerelay connect -t home`.
type targetsFile struct {
	Targets []targetEntry `toml:"targets"`
}

type targetEntry struct {
	Name      string `toml:"name"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Password  string `toml:"password"`
	TLS       bool   `toml:"tls"`
	WebSocket bool   `toml:"websocket"`
}

func targetsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "weerelay", "targets.toml"), nil
}

func loadTargets(path string) (targetsFile, error) {
	var tf targetsFile
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return tf, nil
	}
	if _, err := toml.DecodeFile(path, &tf); err != nil {
		return tf, fmt.Errorf("targets load failed (%s): %w", path, err)
	}
	return tf, nil
}

func saveTargets(path string, tf targetsFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(tf)
}

func findTarget(tf targetsFile, name string) (targetEntry, bool) {
	for _, t := range tf.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return targetEntry{}, false
}

func newTargetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Manage saved relay targets",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := targetsPath()
			if err != nil {
				return err
			}
			tf, err := loadTargets(path)
			if err != nil {
				return err
			}
			sort.Slice(tf.Targets, func(i, j int) bool {
				return tf.Targets[i].Name < tf.Targets[j].Name
			})
			for _, t := range tf.Targets {
				scheme := "tcp"
				if t.WebSocket {
					scheme = "ws"
				}
				if t.TLS {
					scheme += "+tls"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s:%d\t%s\n", t.Name, t.Host, t.Port, scheme)
			}
			return nil
		},
	}

	var entry targetEntry
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or replace a saved target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry.Name = args[0]
			if entry.Host == "" {
				return fmt.Errorf("--host is required")
			}
			if entry.Port == 0 {
				entry.Port = 9000
			}
			path, err := targetsPath()
			if err != nil {
				return err
			}
			tf, err := loadTargets(path)
			if err != nil {
				return err
			}
			kept := tf.Targets[:0]
			for _, t := range tf.Targets {
				if t.Name != entry.Name {
					kept = append(kept, t)
				}
			}
			tf.Targets = append(kept, entry)
			if err := saveTargets(path, tf); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", entry.Name)
			return nil
		},
	}
	addCmd.Flags().StringVar(&entry.Host, "host", "", "relay host")
	addCmd.Flags().IntVar(&entry.Port, "port", 9000, "relay port")
	addCmd.Flags().StringVar(&entry.Password, "password", "", "relay password")
	addCmd.Flags().BoolVar(&entry.TLS, "tls", false, "use TLS")
	addCmd.Flags().BoolVar(&entry.WebSocket, "websocket", false, "use the WebSocket endpoint")

	removeCmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a saved target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := targetsPath()
			if err != nil {
				return err
			}
			tf, err := loadTargets(path)
			if err != nil {
				return err
			}
			kept := tf.Targets[:0]
			removed := false
			for _, t := range tf.Targets {
				if t.Name == args[0] {
					removed = true
					continue
				}
				kept = append(kept, t)
			}
			if !removed {
				return fmt.Errorf("no target named %s", args[0])
			}
			tf.Targets = kept
			if err := saveTargets(path, tf); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, addCmd, removeCmd)
	return cmd
}
