package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// RemotesConfig holds all named remotes and tracks which one is active.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is a named server profile.
type Remote struct {
	URL         string `toml:"url"`
	GRPCAddr    string `toml:"grpc_addr,omitempty"`
	Token       string `toml:"token,omitempty"`
	UserID      string `toml:"user_id,omitempty"`
	NATSURL     string `toml:"nats_url,omitempty"`
	Description string `toml:"description,omitempty"`
}

func remoteConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "presets")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

func loadRemotesConfig() (RemotesConfig, error) {
	path, err := remoteConfigPath()
	if err != nil {
		return RemotesConfig{}, err
	}
	var cfg RemotesConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return RemotesConfig{Remotes: map[string]Remote{}}, nil
		}
		return RemotesConfig{}, err
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return cfg, nil
}

func saveRemotesConfig(cfg RemotesConfig) error {
	path, err := remoteConfigPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Active remote, loaded once per process.
var (
	remoteOnce   sync.Once
	activeRemote Remote
)

func loadActiveRemoteOnce() {
	remoteOnce.Do(func() {
		cfg, err := loadRemotesConfig()
		if err != nil || cfg.Active == "" {
			return
		}
		activeRemote = cfg.Remotes[cfg.Active]
	})
}

func activeRemoteURL() string      { loadActiveRemoteOnce(); return activeRemote.URL }
func activeRemoteGRPCAddr() string { loadActiveRemoteOnce(); return activeRemote.GRPCAddr }
func activeRemoteToken() string    { loadActiveRemoteOnce(); return activeRemote.Token }
func activeRemoteUser() string     { loadActiveRemoteOnce(); return activeRemote.UserID }
func activeRemoteNATSURL() string  { loadActiveRemoteOnce(); return activeRemote.NATSURL }

func maskToken(t string, fill string) string {
	if len(t) <= 8 {
		return t
	}
	if fill == "" {
		return t[:8] + "..."
	}
	return t[:8] + strings.Repeat(fill, len(t)-8)
}

var remoteCmd = &cobra.Command{
	Use:               "remote",
	Short:             "Manage named server remotes",
	GroupID:           "system",
	PersistentPreRunE: skipConnect,
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		r := Remote{URL: url}
		r.GRPCAddr, _ = cmd.Flags().GetString("grpc-addr")
		r.Token, _ = cmd.Flags().GetString("token")
		r.UserID, _ = cmd.Flags().GetString("user")
		r.NATSURL, _ = cmd.Flags().GetString("nats")
		r.Description, _ = cmd.Flags().GetString("description")

		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		cfg.Remotes[name] = r
		if err := saveRemotesConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q added (%s)\n", name, url)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		if _, ok := cfg.Remotes[name]; !ok {
			return fmt.Errorf("remote %q not found", name)
		}
		delete(cfg.Remotes, name)
		if cfg.Active == name {
			cfg.Active = ""
		}
		if err := saveRemotesConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q removed\n", name)
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all remotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		if len(cfg.Remotes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no remotes configured")
			return nil
		}
		names := make([]string, 0, len(cfg.Remotes))
		for name := range cfg.Remotes {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tURL\tUSER\tTOKEN\tDESCRIPTION")
		for _, name := range names {
			r := cfg.Remotes[name]
			marker := "  "
			if name == cfg.Active {
				marker = "* "
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\n", marker, name, r.URL, r.UserID, maskToken(r.Token, ""), r.Description)
		}
		return w.Flush()
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the active remote (no args clears it)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			cfg.Active = ""
			if err := saveRemotesConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "active remote cleared")
			return nil
		}
		name := args[0]
		if _, ok := cfg.Remotes[name]; !ok {
			return fmt.Errorf("remote %q not found", name)
		}
		cfg.Active = name
		if err := saveRemotesConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active remote set to %q\n", name)
		return nil
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show details for a remote (defaults to active)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}

		name := cfg.Active
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			return fmt.Errorf("no active remote; specify a name or run 'presets remote use <name>'")
		}

		r, ok := cfg.Remotes[name]
		if !ok {
			return fmt.Errorf("remote %q not found", name)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		active := ""
		if name == cfg.Active {
			active = " (active)"
		}
		fmt.Fprintf(w, "name:\t%s%s\n", name, active)
		if r.Description != "" {
			fmt.Fprintf(w, "description:\t%s\n", r.Description)
		}
		fmt.Fprintf(w, "url:\t%s\n", r.URL)
		if r.GRPCAddr != "" {
			fmt.Fprintf(w, "grpc_addr:\t%s\n", r.GRPCAddr)
		}
		if r.UserID != "" {
			fmt.Fprintf(w, "user_id:\t%s\n", r.UserID)
		}
		if r.Token != "" {
			fmt.Fprintf(w, "token:\t%s\n", maskToken(r.Token, "*"))
		}
		if r.NATSURL != "" {
			fmt.Fprintf(w, "nats_url:\t%s\n", r.NATSURL)
		}
		return w.Flush()
	},
}

func init() {
	remoteAddCmd.Flags().String("grpc-addr", "", "gRPC address of the same server")
	remoteAddCmd.Flags().String("token", "", "bearer token for authentication")
	remoteAddCmd.Flags().String("user", "", "user id for servers without JWT")
	remoteAddCmd.Flags().String("nats", "", "NATS URL for event streaming")
	remoteAddCmd.Flags().String("description", "", "human-readable description of the remote")

	remoteCmd.AddCommand(remoteAddCmd)
	remoteCmd.AddCommand(remoteRemoveCmd)
	remoteCmd.AddCommand(remoteListCmd)
	remoteCmd.AddCommand(remoteUseCmd)
	remoteCmd.AddCommand(remoteShowCmd)
}
