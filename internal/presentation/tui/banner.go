package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Tendril banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{" _____              _      _ _ ", "#34d399"},
		{"|_   _|__ _ __   __| |_ __(_) |", "#10b981"},
		{"  | |/ _ \\ '_ \\ / _` | '__| | |", "#059669"},
		{"  | |  __/ | | | (_| | |  | | |", "#047857"},
		{"  |_|\\___|_| |_|\\__,_|_|  |_|_|", "#065f46"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
