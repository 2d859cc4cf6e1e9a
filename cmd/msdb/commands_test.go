package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/moelife-coder/msdb/internal/engine"
)

func runLines(t *testing.T, s *engine.Session, lines ...string) (*engine.Session, []string) {
	t.Helper()
	var outputs []string
	for _, line := range lines {
		ns, out, err := runCommand(s, "", "", line)
		if err != nil {
			t.Fatalf("command %q: %v", line, err)
		}
		s = ns
		outputs = append(outputs, out)
	}
	return s, outputs
}

func TestRunCommandLifecycleSmoke(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db1")

	s, _, err := runCommand(nil, "", "", "create "+root+" hunter2")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	s, _ = runLines(t, s,
		"new struct users",
		"select users",
		"new alice",
		"select alice",
		"new name literal Alice",
		"sync",
		"logout",
	)

	s, _, err = runCommand(s, "", "", "decrypt "+root+" hunter2")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}

	s, _ = runLines(t, s, "select users/alice", "load")
	_, out, err := runCommand(s, "", "", "ls")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if !strings.Contains(out, `name : "Alice"`) {
		t.Fatalf("ls output = %q, want it to contain %q", out, `name : "Alice"`)
	}
}

func TestRunCommandRejectsUnknownVerb(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db1")
	s, _, err := runCommand(nil, "", "", "create "+root+" pw")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := runCommand(s, "", "", "frobnicate"); err == nil {
		t.Fatal("expected an error for an unrecognized verb")
	}
}

func TestRunCommandPwdRendersLocation(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db1")
	s, _, err := runCommand(nil, "", "", "create "+root+" pw")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s, outs := runLines(t, s, "pwd", "new struct widgets", "select widgets", "pwd")
	if outs[0] != "~" {
		t.Fatalf("pwd at root = %q, want %q", outs[0], "~")
	}
	if outs[3] != "widgets" {
		t.Fatalf("pwd inside structure = %q, want %q", outs[3], "widgets")
	}
	_ = s
}
