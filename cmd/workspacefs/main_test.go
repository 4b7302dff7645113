// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/suidgate/lib/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	flagSet, flags, err := parseFlags("mount", nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg, err := flags.load(flagSet)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workspace.Mountpoint != "/run/workspace/bin" || cfg.Workspace.Store != "/run/dojo/bin" {
		t.Errorf("workspace = %+v, want compiled-in layout", cfg.Workspace)
	}
	if !cfg.RedirectsToStore() {
		t.Error("default layout should match the launchers' redirection")
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suidgate.yaml")
	content := `
workspace:
  mountpoint: /srv/workspace
  store: /srv/store
  primary_uid: 1500
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	flagSet, flags, err := parseFlags("mount", []string{
		"--config", path,
		"--store", "/srv/other-store",
		"--allow-other=false",
		"--debug",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg, err := flags.load(flagSet)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Workspace.Mountpoint != "/srv/workspace" {
		t.Errorf("Mountpoint = %q, want value from file", cfg.Workspace.Mountpoint)
	}
	if cfg.Workspace.Store != "/srv/other-store" {
		t.Errorf("Store = %q, want flag value", cfg.Workspace.Store)
	}
	if cfg.Workspace.PrimaryUID != 1500 {
		t.Errorf("PrimaryUID = %d, want value from file", cfg.Workspace.PrimaryUID)
	}
	if cfg.Workspace.AllowOther {
		t.Error("AllowOther should be overridden to false")
	}
	if !cfg.Workspace.Debug {
		t.Error("Debug should be overridden to true")
	}
	if cfg.RedirectsToStore() {
		t.Error("custom layout should not match the launchers' redirection")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suidgate.yaml")
	if err := os.WriteFile(path, []byte("workspace:\n  primary_uid: 4242\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(config.EnvironmentVariable, path)

	flagSet, flags, err := parseFlags("check", nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg, err := flags.load(flagSet)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workspace.PrimaryUID != 4242 {
		t.Errorf("PrimaryUID = %d, want 4242", cfg.Workspace.PrimaryUID)
	}
}

func TestLoadRejectsInvalidOverride(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	flagSet, flags, err := parseFlags("mount", []string{"--mountpoint", "relative/path"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	_, err = flags.load(flagSet)
	if err == nil || !strings.Contains(err.Error(), "must be absolute") {
		t.Errorf("load error = %v, want absolute-path failure", err)
	}
}

func TestParseFlagsRejectsArguments(t *testing.T) {
	if _, _, err := parseFlags("mount", []string{"extra"}); err == nil {
		t.Error("positional argument should be rejected")
	}
}

func TestParseFlagsValidatesColor(t *testing.T) {
	for _, value := range []string{"auto", "always", "never"} {
		if _, _, err := parseFlags("check", []string{"--color", value}); err != nil {
			t.Errorf("--color %s: %v", value, err)
		}
	}
	if _, _, err := parseFlags("check", []string{"--color", "sometimes"}); err == nil {
		t.Error("--color sometimes should be rejected")
	}
}

func TestDebugFlagRaisesLogLevel(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	for _, test := range []struct {
		args []string
		want slog.Level
	}{
		{nil, slog.LevelInfo},
		{[]string{"--debug"}, slog.LevelDebug},
	} {
		flagSet, flags, err := parseFlags("mount", test.args)
		if err != nil {
			t.Fatalf("parseFlags(%v): %v", test.args, err)
		}
		cfg, err := flags.load(flagSet)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		logLevel := new(slog.LevelVar)
		applyLogLevel(cfg, logLevel)
		if got := logLevel.Level(); got != test.want {
			t.Errorf("args %v: level = %v, want %v", test.args, got, test.want)
		}
		if cfg.Workspace.Debug != (test.want == slog.LevelDebug) {
			t.Errorf("args %v: FUSE tracing = %v", test.args, cfg.Workspace.Debug)
		}
	}
}

func TestCheckFailedExitCode(t *testing.T) {
	var err error = checkFailed{}
	coder, ok := err.(interface{ ExitCode() int })
	if !ok || coder.ExitCode() != 1 {
		t.Errorf("checkFailed should carry exit code 1")
	}
}
