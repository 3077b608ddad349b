package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/alfredjeanlab/presets/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printPresetTable(w io.Writer, p *model.Preset) {
	fmt.Fprintf(w, "ID:          %s\n", ui.RenderAccent(p.ID))
	fmt.Fprintf(w, "Name:        %s\n", p.Name)
	fmt.Fprintf(w, "Tool:        %s\n", p.ToolID)
	fmt.Fprintf(w, "Owner:       %s\n", p.OwnerID)
	fmt.Fprintf(w, "Visibility:  %s\n", ui.RenderVisibility(p.Visibility))
	fmt.Fprintf(w, "Reactions:   %s\n", ui.RenderReactions(p.ReactionCounts, p.UserReaction))
	if !p.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created At:  %s\n", p.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if !p.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated At:  %s\n", p.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if p.DeletedAt != nil {
		fmt.Fprintf(w, "Deleted At:  %s\n", p.DeletedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if params, err := json.MarshalIndent(p.Parameters, "             ", "  "); err == nil {
		fmt.Fprintf(w, "Parameters:  %s\n", params)
	}
}

func printPresetListTable(w io.Writer, page *model.Page) {
	if len(page.Presets) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("no presets"))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOOL\tNAME\tOWNER\tVISIBILITY\tREACTIONS\tUPDATED")
	for _, p := range page.Presets {
		name := p.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID,
			p.ToolID,
			name,
			p.OwnerID,
			p.Visibility,
			ui.RenderReactions(p.ReactionCounts, p.UserReaction),
			relativeTime(p.UpdatedAt),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d presets\n", len(page.Presets))
	if page.NextCursor != "" {
		fmt.Fprintf(w, "%s\n", ui.RenderMuted("more: --cursor "+page.NextCursor))
	}
}

func printToggleResult(w io.Writer, r *model.ToggleResult) {
	switch {
	case r.UserReaction == nil:
		fmt.Fprintf(w, "Removed reaction on %s\n", r.PresetID)
	default:
		fmt.Fprintf(w, "Reacted %s on %s\n", *r.UserReaction, r.PresetID)
	}
	fmt.Fprintf(w, "Reactions: %s\n", ui.RenderReactions(r.ReactionCounts, r.UserReaction))
}

func printEventLine(w io.Writer, at time.Time, topic, presetID, actor string, payload json.RawMessage) {
	ts := ""
	if !at.IsZero() {
		ts = at.Local().Format("15:04:05") + " "
	}
	line := fmt.Sprintf("%s%s %s", ui.RenderMuted(ts), ui.RenderAccent(topic), presetID)
	if actor != "" {
		line += " by " + actor
	}
	if len(payload) > 0 {
		line += " " + ui.RenderMuted(string(payload))
	}
	fmt.Fprintln(w, line)
}

var nowFunc = time.Now

// relativeTime renders t as a short age like "5m ago".
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := nowFunc().Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
