package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alfredjeanlab/presets/internal/client"
	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/spf13/cobra"
)

// readParams resolves the --params value: inline JSON, @path to read a file,
// or "-" for stdin.
func readParams(v string, stdin io.Reader) (model.Document, error) {
	var data []byte
	switch {
	case v == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return model.Document{}, fmt.Errorf("reading stdin: %w", err)
		}
		data = b
	case strings.HasPrefix(v, "@"):
		b, err := os.ReadFile(v[1:])
		if err != nil {
			return model.Document{}, err
		}
		data = b
	default:
		data = []byte(v)
	}
	return model.ParseDocument([]byte(strings.TrimSpace(string(data))))
}

var saveCmd = &cobra.Command{
	Use:     "save",
	Short:   "Save a new preset",
	GroupID: "presets",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, _ := cmd.Flags().GetString("tool")
		name, _ := cmd.Flags().GetString("name")
		raw, _ := cmd.Flags().GetString("params")
		public, _ := cmd.Flags().GetBool("public")

		params, err := readParams(raw, cmd.InOrStdin())
		if err != nil {
			return err
		}
		preset, err := presetsClient.SavePreset(context.Background(), &client.SavePresetRequest{
			ToolID:     tool,
			Name:       name,
			Parameters: params,
			IsPublic:   public,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), preset)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", preset.ID, preset.Visibility)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show a preset",
	GroupID: "presets",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		preset, err := presetsClient.GetPreset(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), preset)
		}
		printPresetTable(cmd.OutOrStdout(), preset)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List your presets for a tool, or public ones with --public",
	GroupID: "presets",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		public, _ := cmd.Flags().GetBool("public")
		req := &client.ListRequest{}
		req.ToolID, _ = cmd.Flags().GetString("tool")
		req.Page, _ = cmd.Flags().GetInt("page")
		req.PageSize, _ = cmd.Flags().GetInt("page-size")
		req.Cursor, _ = cmd.Flags().GetString("cursor")

		list := presetsClient.ListOwned
		if public {
			list = presetsClient.ListPublic
		}
		page, err := list(context.Background(), req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), page)
		}
		printPresetListTable(cmd.OutOrStdout(), page)
		return nil
	},
}

func visibilityCmd(use, short string, isPublic bool) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <id>",
		Short:   short,
		GroupID: "presets",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := presetsClient.SetVisibility(context.Background(), args[0], isPublic)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			if res.Changed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], res.Visibility)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already %s\n", args[0], res.Visibility)
			}
			return nil
		},
	}
}

var (
	publishCmd   = visibilityCmd("publish", "Make a preset public", true)
	unpublishCmd = visibilityCmd("unpublish", "Make a preset private", false)
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Short:   "Delete a preset",
	GroupID: "presets",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := presetsClient.DeletePreset(context.Background(), args[0]); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]string{"id": args[0], "status": "deleted"})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

var reactCmd = &cobra.Command{
	Use:   "react <id> <symbol>",
	Short: "Toggle your reaction on a public preset",
	Long: `Toggle your reaction on a public preset.

The symbol is an emoji (👍 ❤️ 😂 😮 🎉 🔥) or one of the aliases
+1, thumbsup, heart, laugh, wow, party, tada, fire. Reacting with the
symbol you already chose removes it; a different symbol switches.`,
	GroupID: "presets",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol, err := model.ParseSymbol(args[1])
		if err != nil {
			return err
		}
		res, err := presetsClient.ToggleReaction(context.Background(), args[0], symbol)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		printToggleResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	saveCmd.Flags().String("tool", "", "tool id the preset belongs to (required)")
	saveCmd.Flags().String("name", "", "preset name (required)")
	saveCmd.Flags().String("params", "{}", "parameters as JSON, @file, or - for stdin")
	saveCmd.Flags().Bool("public", false, "publish the preset immediately")
	_ = saveCmd.MarkFlagRequired("tool")
	_ = saveCmd.MarkFlagRequired("name")

	listCmd.Flags().String("tool", "", "tool id to list presets for (required)")
	listCmd.Flags().Bool("public", false, "list public presets instead of your own")
	listCmd.Flags().Int("page", 0, "zero-based page index")
	listCmd.Flags().Int("page-size", 0, fmt.Sprintf("presets per page (default %d, max %d)", model.DefaultPageSize, model.MaxPageSize))
	listCmd.Flags().String("cursor", "", "continue after the cursor printed by a previous page")
	_ = listCmd.MarkFlagRequired("tool")
}
