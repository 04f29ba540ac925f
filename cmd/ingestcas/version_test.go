package main

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestVersionHelpers(t *testing.T) {
	t.Parallel()

	if getVersion() == "" {
		t.Error("getVersion() returned empty string")
	}
	if c := getCommit(); c == "" || len(c) > 7 && c != "unknown" {
		t.Errorf("getCommit() returned %q", c)
	}
	if getDate() == "" {
		t.Error("getDate() returned empty string")
	}
	if got := buildSetting("no.such.setting"); got != "unknown" {
		t.Errorf("expected unknown for missing setting, got %q", got)
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	t.Run("prints full version info", func(t *testing.T) {
		t.Parallel()
		cmd := NewVersionCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"ingestcas version", "commit:", "built:", runtime.Version()} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got %q", want, output)
			}
		}
	})

	t.Run("short flag prints only the version", func(t *testing.T) {
		t.Parallel()
		cmd := NewVersionCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--short"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.TrimSpace(buf.String()); got != getVersion() {
			t.Errorf("expected %q, got %q", getVersion(), got)
		}
	})
}
