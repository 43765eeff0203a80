package main

import (
	"bytes"
	"io"
	"testing"
)

// TestResolveUIMode covers every mode with and without a TTY.
func TestResolveUIMode(t *testing.T) {
	orig := isTerminal
	defer func() { isTerminal = orig }()

	cases := []struct {
		mode    string
		tty     bool
		want    uiMode
		wantErr bool
	}{
		{"", true, uiTerminal, false},
		{"auto", false, uiServer, false},
		{"TUI", true, uiTerminal, false},
		{"tui", false, uiServer, true},
		{"server", true, uiServer, false},
		{"web", true, uiServer, true},
	}
	for _, tc := range cases {
		tty := tc.tty
		isTerminal = func(io.Writer) bool { return tty }
		got, err := resolveUIMode(tc.mode, &bytes.Buffer{})
		if (err != nil) != tc.wantErr {
			t.Fatalf("resolveUIMode(%q, tty=%v) error = %v, wantErr %v", tc.mode, tc.tty, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("resolveUIMode(%q, tty=%v) = %v, want %v", tc.mode, tc.tty, got, tc.want)
		}
	}
}

// TestDefaultIsTerminal treats plain buffers as non-TTY.
func TestDefaultIsTerminal(t *testing.T) {
	if defaultIsTerminal(&bytes.Buffer{}) {
		t.Fatal("buffer reported as terminal")
	}
	if defaultIsTerminal(nil) {
		t.Fatal("nil writer reported as terminal")
	}
}
