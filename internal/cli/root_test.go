package cli

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetVersionInfo(t *testing.T) {
	// Save originals.
	origVersion := appVersion
	origCommit := appCommit
	origDate := appDate
	defer func() {
		appVersion = origVersion
		appCommit = origCommit
		appDate = origDate
	}()

	SetVersionInfo("1.2.3", "abc1234", "2026-02-13")

	if appVersion != "1.2.3" {
		t.Errorf("appVersion = %q, want 1.2.3", appVersion)
	}
	if appCommit != "abc1234" {
		t.Errorf("appCommit = %q, want abc1234", appCommit)
	}
	if appDate != "2026-02-13" {
		t.Errorf("appDate = %q, want 2026-02-13", appDate)
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"nonexistent-command"})

	err := Execute()
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExecute_VersionSubcommand(t *testing.T) {
	origVersion := appVersion
	origCommit := appCommit
	origDate := appDate
	defer func() {
		appVersion = origVersion
		appCommit = origCommit
		appDate = origDate
	}()
	appVersion = "test-ver"
	appCommit = "test-commit"
	appDate = "test-date"

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetOut(nil)

	err := Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "smartsched test-ver") {
		t.Errorf("expected version line, got %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), "test-commit") {
		t.Errorf("expected commit in output, got %q", stdout.String())
	}
}

func TestRootCmd_Registration(t *testing.T) {
	want := []string{"add", "list", "next", "pop", "delete", "done", "completed", "stats", "alerts", "dashboard", "calendar", "config", "mcp", "version"}
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered on root", name)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelWarn},
		{"chatty", slog.LevelWarn},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
