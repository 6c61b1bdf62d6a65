package main

import (
	"fmt"
	"io"

	"golang.org/x/term"
)

// isTTY returns true if the given file descriptor is a terminal.
func isTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// printBanner prints the goramcp ASCII art banner. When useColor is true,
// ANSI escape codes are used for a red/yellow gradient.
func printBanner(w io.Writer, useColor bool) {
	// ASCII art lines for "goramcp"
	lines := []string{
		`                                               `,
		`   __ _  ___  _ __ __ _ _ __ ___   ___ _ __   `,
		`  / _' |/ _ \| '__/ _' | '_ ' _ \ / __| '_ \  `,
		` | (_| | (_) | | | (_| | | | | | | (__| |_) | `,
		`  \__, |\___/|_|  \__,_|_| |_| |_|\___| .__/  `,
		`  |___/                               |_|     `,
		`                                               `,
	}

	if useColor {
		// Bold red → yellow gradient
		colors := []string{
			"\033[1;31m", // bold red
			"\033[1;31m", // bold red
			"\033[1;91m", // bold bright red
			"\033[1;33m", // bold yellow
			"\033[1;93m", // bold bright yellow
			"\033[1;93m", // bold bright yellow
			"\033[0m",    // reset (blank line)
		}
		for i, line := range lines {
			color := colors[i%len(colors)]
			fmt.Fprintf(w, "%s%s\033[0m\n", color, line)
		}
	} else {
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
	}
}
