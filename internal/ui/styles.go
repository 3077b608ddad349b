package ui

import (
	"fmt"
	"strings"

	"github.com/alfredjeanlab/presets/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = 74  // blue
	colorCmd     = 250 // light gray
	colorMuted   = 245 // medium gray
	colorPublic  = 114 // green
	colorPrivate = 180 // amber
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderVisibility colors a visibility label: green for public, amber for
// private.
func RenderVisibility(v model.Visibility) string {
	if v == model.VisibilityPublic {
		return render(colorPublic, v.String())
	}
	return render(colorPrivate, v.String())
}

// RenderReactions formats counts as "👍 2  🔥 1" in display order. The
// viewer's own reaction is highlighted with the accent color. Empty counts
// render as a muted dash.
func RenderReactions(counts model.ReactionCounts, mine *model.Symbol) string {
	symbols := counts.Symbols()
	if len(symbols) == 0 {
		return RenderMuted("-")
	}
	parts := make([]string, 0, len(symbols))
	for _, s := range symbols {
		part := fmt.Sprintf("%s %d", s, counts.Get(s))
		if mine != nil && *mine == s {
			part = RenderAccent(part)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "  ")
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
