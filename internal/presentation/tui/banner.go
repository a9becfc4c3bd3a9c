package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	`   ___ __ _ _ __   ___  _ __  _   _ `,
	`  / __/ _' | '_ \ / _ \| '_ \| | | |`,
	` | (_| (_| | | | | (_) | |_) | |_| |`,
	`  \___\__,_|_| |_|\___/| .__/ \__, |`,
	`                       |_|    |___/ `,
}

// Canopy greens, top to bottom.
var bannerColors = []string{"#bef264", "#a3e635", "#84cc16", "#65a30d", "#4d7c0f"}

// PrintBanner writes the canopy banner and version to w, colored when w is a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(p.Color(bannerColors[i])))
	}
	fmt.Fprintln(w, out.String("  v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
