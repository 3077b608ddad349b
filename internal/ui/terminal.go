package ui

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether ANSI colors should be written to w.
// NO_COLOR disables color, CLICOLOR_FORCE=1 forces it, CLICOLOR=0 disables
// it; otherwise color is used only when w is a terminal.
func ShouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
