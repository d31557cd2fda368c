package main

import (
	"strings"
	"testing"
)

func TestVersionDefaults(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if GitCommit == "" {
		t.Error("GitCommit should not be empty")
	}
	if BuildDate == "" {
		t.Error("BuildDate should not be empty")
	}
}

func TestVersionCommandRegistered(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Use == "version" {
			found = true
		}
	}
	if !found {
		t.Error("version command not registered on root")
	}
}

func TestRootCommandMetadata(t *testing.T) {
	if rootCmd.Use != "governor" {
		t.Errorf("rootCmd.Use = %q, want governor", rootCmd.Use)
	}
	if !strings.Contains(rootCmd.Long, "escalation") {
		t.Error("rootCmd.Long should describe the escalation ladder")
	}

	for _, name := range []string{"run", "status", "reset", "history"} {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Use == name {
				found = true
			}
		}
		if !found {
			t.Errorf("%s command not registered on root", name)
		}
	}
}
