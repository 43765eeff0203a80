package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type uiMode int

const (
	uiServer uiMode = iota
	uiTerminal
)

// isTerminal reports whether a writer is a TTY.
var isTerminal = defaultIsTerminal

// resolveUIMode picks the terminal wizard or the HTTP server.
func resolveUIMode(mode string, stdout io.Writer) (uiMode, error) {
	normalized := strings.ToLower(strings.TrimSpace(mode))
	if normalized == "" {
		normalized = "auto"
	}
	switch normalized {
	case "auto":
		if isTerminal(stdout) {
			return uiTerminal, nil
		}
		return uiServer, nil
	case "tui":
		if !isTerminal(stdout) {
			return uiServer, fmt.Errorf("terminal wizard requested but stdout is not a TTY")
		}
		return uiTerminal, nil
	case "server":
		return uiServer, nil
	default:
		return uiServer, fmt.Errorf("invalid ui mode %q (expected auto|tui|server)", mode)
	}
}

func defaultIsTerminal(stdout io.Writer) bool {
	if stdout == nil {
		return false
	}
	if file, ok := stdout.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	if fder, ok := stdout.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(fder.Fd()))
	}
	return false
}
