package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/presets/internal/config"
	"github.com/alfredjeanlab/presets/internal/events"
	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/alfredjeanlab/presets/internal/reconcile"
	"github.com/alfredjeanlab/presets/internal/server"
	"github.com/alfredjeanlab/presets/internal/store/postgres"
	presetsync "github.com/alfredjeanlab/presets/internal/sync"
	"github.com/spf13/cobra"
)

// Admin commands talk to the database and bus directly using the server's
// PRESETS_* environment.
var adminCmd = &cobra.Command{
	Use:               "admin",
	Short:             "Operator commands that run against the server's database",
	GroupID:           "system",
	PersistentPreRunE: skipConnect,
}

var adminReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare stored reaction counts with the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repair, _ := cmd.Flags().GetBool("repair")
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		var publisher events.Publisher = events.NoopPublisher{}
		if repair && cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			defer pub.Close()
			publisher = pub
		}

		drift, err := reconcile.New(store, publisher, repair, logger).RunOnce(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput {
			if drift == nil {
				drift = []model.CountDrift{}
			}
			return printJSON(cmd.OutOrStdout(), drift)
		}
		printDrift(cmd, drift)
		return nil
	},
}

func printDrift(cmd *cobra.Command, drift []model.CountDrift) {
	out := cmd.OutOrStdout()
	if len(drift) == 0 {
		fmt.Fprintln(out, "reaction counts match the ledger")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tSTORED\tLEDGER\tREPAIRED")
	for _, d := range drift {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", d.PresetID, formatCounts(d.Stored), formatCounts(d.Ledger), d.Repaired)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d drifted presets\n", len(drift))
}

func formatCounts(c model.ReactionCounts) string {
	s := ""
	for i, sym := range c.Symbols() {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s%d", sym, c.Get(sym))
	}
	if s == "" {
		return "-"
	}
	return s
}

var adminExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run one export to the configured destinations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dests := exportDestinations(context.Background(), cfg, logger)
		if len(dests) == 0 {
			return errors.New("no export destination configured (set PRESETS_EXPORT_S3_BUCKET or PRESETS_EXPORT_GIT_REPO)")
		}

		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		return presetsync.NewScheduler(store, dests, 0, logger).SyncOnce(context.Background())
	},
}

var adminTokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a signed identity token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("secret")
		if secret == "" {
			secret = os.Getenv("PRESETS_JWT_SECRET")
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")
		id := model.Identity{UserID: args[0]}
		id.DisplayName, _ = cmd.Flags().GetString("name")
		id.Email, _ = cmd.Flags().GetString("email")
		id.AvatarURL, _ = cmd.Flags().GetString("avatar")

		tok, err := server.SignIdentity(secret, id, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	adminReconcileCmd.Flags().Bool("repair", false, "rewrite drifted counts from the ledger")

	adminTokenCmd.Flags().String("secret", "", "signing secret (default $PRESETS_JWT_SECRET)")
	adminTokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	adminTokenCmd.Flags().String("name", "", "display name claim")
	adminTokenCmd.Flags().String("email", "", "email claim")
	adminTokenCmd.Flags().String("avatar", "", "avatar URL claim")

	adminCmd.AddCommand(adminReconcileCmd)
	adminCmd.AddCommand(adminExportCmd)
	adminCmd.AddCommand(adminTokenCmd)
}
