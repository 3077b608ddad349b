package main

import (
	"fmt"
	"os"

	"github.com/alfredjeanlab/presets/internal/client"
	"github.com/alfredjeanlab/presets/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	grpcAddr   string
	token      string
	userID     string
	jsonOutput bool
	noColor    bool

	presetsClient client.PresetsClient
	// httpClient is set when the HTTP transport is in use; the event
	// endpoints are HTTP only.
	httpClient *client.HTTPClient
)

func defaultServer() string {
	if s := os.Getenv("PRESETS_SERVER"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func defaultGRPC() string {
	if s := os.Getenv("PRESETS_GRPC"); s != "" {
		return s
	}
	return activeRemoteGRPCAddr()
}

func defaultToken() string {
	if s := os.Getenv("PRESETS_TOKEN"); s != "" {
		return s
	}
	return activeRemoteToken()
}

func defaultUser() string {
	if s := os.Getenv("PRESETS_USER"); s != "" {
		return s
	}
	return activeRemoteUser()
}

func connect() error {
	creds := client.Credentials{Token: token, UserID: userID}
	if grpcAddr != "" {
		c, err := client.NewGRPCClient(grpcAddr, creds)
		if err != nil {
			return fmt.Errorf("failed to connect to server: %w", err)
		}
		presetsClient = c
		return nil
	}
	httpClient = client.NewHTTPClient(serverURL, creds)
	presetsClient = httpClient
	return nil
}

var rootCmd = &cobra.Command{
	Use:           "presets <command>",
	Short:         "CLI client for the community preset store",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !ui.ShouldUseColor(cmd.OutOrStdout()) {
			ui.ForceNoColor()
		}
		return connect()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if presetsClient != nil {
			presetsClient.Close()
		}
	},
}

// skipConnect is the PersistentPreRunE of commands that never talk to a
// preset server.
func skipConnect(cmd *cobra.Command, args []string) error {
	if noColor || !ui.ShouldUseColor(cmd.OutOrStdout()) {
		ui.ForceNoColor()
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&grpcAddr, "grpc", defaultGRPC(), "gRPC server address (uses gRPC instead of HTTP when set)")
	rootCmd.PersistentFlags().StringVar(&token, "token", defaultToken(), "bearer token identifying the caller")
	rootCmd.PersistentFlags().StringVar(&userID, "user", defaultUser(), "user id sent as X-User-ID (servers without JWT only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "presets", Title: "Presets:"},
		&cobra.Group{ID: "activity", Title: "Activity:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false

	// Presets
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(unpublishCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(reactCmd)

	// Activity
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(adminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
