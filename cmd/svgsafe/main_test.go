package main

import (
	"os"
	"testing"
)

func TestRunHelp(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	oldArgs := os.Args
	os.Args = []string{"svgsafe", "--help"}
	t.Cleanup(func() {
		os.Args = oldArgs
	})
	if code := run(); code != 0 {
		t.Fatalf("run() code = %d, want 0", code)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	oldArgs := os.Args
	os.Args = []string{"svgsafe", "frobnicate"}
	t.Cleanup(func() {
		os.Args = oldArgs
	})
	if code := run(); code != 2 {
		t.Fatalf("run() code = %d, want 2", code)
	}
}
