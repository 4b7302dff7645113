// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "suidgate.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Production {
		t.Errorf("expected environment=production, got %s", cfg.Environment)
	}
	if cfg.Workspace.Mountpoint != "/run/workspace/bin" {
		t.Errorf("expected mountpoint=/run/workspace/bin, got %s", cfg.Workspace.Mountpoint)
	}
	if cfg.Workspace.Store != "/run/dojo/bin" {
		t.Errorf("expected store=/run/dojo/bin, got %s", cfg.Workspace.Store)
	}
	if cfg.Workspace.PrimaryUID != 1000 {
		t.Errorf("expected primary_uid=1000, got %d", cfg.Workspace.PrimaryUID)
	}
	if !cfg.Workspace.AllowOther {
		t.Error("expected allow_other=true")
	}
	if !cfg.RedirectsToStore() {
		t.Error("default config should match the launchers' redirection")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_RequiresConfigVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when SUIDGATE_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "SUIDGATE_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_WithConfigVariable(t *testing.T) {
	configPath := writeConfig(t, `
workspace:
  store: /srv/store
`)
	t.Setenv(EnvironmentVariable, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Workspace.Store != "/srv/store" {
		t.Errorf("expected store=/srv/store, got %s", cfg.Workspace.Store)
	}
	if cfg.Workspace.Mountpoint != "/run/workspace/bin" {
		t.Errorf("unset fields should keep defaults, got mountpoint=%s", cfg.Workspace.Mountpoint)
	}
	if cfg.RedirectsToStore() {
		t.Error("custom store should not match the launchers' redirection")
	}
}

func TestLoadFile(t *testing.T) {
	configPath := writeConfig(t, `
environment: production

workspace:
  mountpoint: /mnt/workspace
  store: /mnt/store
  primary_uid: 1001
  allow_other: false
  fs_name: ws

deploy:
  launchers:
    - /opt/bin/python-suid
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Workspace.Mountpoint != "/mnt/workspace" {
		t.Errorf("expected mountpoint=/mnt/workspace, got %s", cfg.Workspace.Mountpoint)
	}
	if cfg.Workspace.PrimaryUID != 1001 {
		t.Errorf("expected primary_uid=1001, got %d", cfg.Workspace.PrimaryUID)
	}
	if cfg.Workspace.AllowOther {
		t.Error("expected allow_other=false")
	}
	if cfg.Workspace.FsName != "ws" {
		t.Errorf("expected fs_name=ws, got %s", cfg.Workspace.FsName)
	}
	if len(cfg.Deploy.Launchers) != 1 || cfg.Deploy.Launchers[0] != "/opt/bin/python-suid" {
		t.Errorf("expected one launcher, got %v", cfg.Deploy.Launchers)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	configPath := writeConfig(t, "workspace: [unclosed\n")
	if _, err := LoadFile(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestDevelopmentDefaults(t *testing.T) {
	configPath := writeConfig(t, `
environment: development
workspace:
  debug: true
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Workspace.AllowOther {
		t.Error("development without overrides should not request allow_other")
	}
	if !cfg.Workspace.Debug {
		t.Error("base debug setting should survive development defaults")
	}
}

func TestDevelopmentKeepsExplicitAllowOther(t *testing.T) {
	configPath := writeConfig(t, `
environment: development
workspace:
  allow_other: true
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if !cfg.Workspace.AllowOther {
		t.Error("explicit base allow_other=true should survive development defaults")
	}
}

func TestDevelopmentOverrideAllowOther(t *testing.T) {
	configPath := writeConfig(t, `
environment: development
development:
  workspace:
    allow_other: true
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if !cfg.Workspace.AllowOther {
		t.Error("development override allow_other=true should apply")
	}
}

func TestOverridesLeaveUnsetBoolsAlone(t *testing.T) {
	configPath := writeConfig(t, `
environment: production
workspace:
  debug: true
production:
  workspace:
    fs_name: prodfs
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Workspace.FsName != "prodfs" {
		t.Errorf("expected fs_name=prodfs, got %s", cfg.Workspace.FsName)
	}
	if !cfg.Workspace.AllowOther {
		t.Error("override without allow_other should keep the default allow_other=true")
	}
	if !cfg.Workspace.Debug {
		t.Error("override without debug should keep the base debug=true")
	}
}

func TestOverridesCanClearBools(t *testing.T) {
	configPath := writeConfig(t, `
environment: production
workspace:
  debug: true
production:
  workspace:
    allow_other: false
    debug: false
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Workspace.AllowOther || cfg.Workspace.Debug {
		t.Errorf("explicit false overrides should apply: %+v", cfg.Workspace)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	configPath := writeConfig(t, `
environment: production

workspace:
  store: /default/store

production:
  workspace:
    store: /prod/store
    allow_other: true
  deploy:
    launchers:
      - /prod/bin/sh-suid

development:
  workspace:
    store: /dev/store
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Workspace.Store != "/prod/store" {
		t.Errorf("expected store=/prod/store, got %s", cfg.Workspace.Store)
	}
	if !cfg.Workspace.AllowOther {
		t.Error("expected allow_other=true from production override")
	}
	if len(cfg.Deploy.Launchers) != 1 || cfg.Deploy.Launchers[0] != "/prod/bin/sh-suid" {
		t.Errorf("expected production launchers, got %v", cfg.Deploy.Launchers)
	}
}

func TestVariableExpansion(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("SUIDGATE_TEST_STORE", "")
	configPath := writeConfig(t, `
workspace:
  mountpoint: ${HOME}/workspace
  store: ${SUIDGATE_TEST_STORE:-/fallback/store}
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Workspace.Mountpoint != "/home/tester/workspace" {
		t.Errorf("expected mountpoint=/home/tester/workspace, got %s", cfg.Workspace.Mountpoint)
	}
	if cfg.Workspace.Store != "/fallback/store" {
		t.Errorf("expected store=/fallback/store, got %s", cfg.Workspace.Store)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"bad environment", func(c *Config) { c.Environment = "staging" }, "invalid environment"},
		{"empty mountpoint", func(c *Config) { c.Workspace.Mountpoint = "" }, "workspace.mountpoint is required"},
		{"relative mountpoint", func(c *Config) { c.Workspace.Mountpoint = "mnt" }, "workspace.mountpoint must be absolute"},
		{"empty store", func(c *Config) { c.Workspace.Store = "" }, "workspace.store is required"},
		{"relative store", func(c *Config) { c.Workspace.Store = "store" }, "workspace.store must be absolute"},
		{"same paths", func(c *Config) { c.Workspace.Store = c.Workspace.Mountpoint + "/" }, "must differ"},
		{"relative launcher", func(c *Config) { c.Deploy.Launchers = []string{"sh-suid"} }, "deploy.launchers"},
		{"bad digest", func(c *Config) { c.Deploy.Digests = map[string]string{"/usr/bin/sh-suid": "not-hex"} }, "deploy.digests[/usr/bin/sh-suid]"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), test.wantErr)
			}
		})
	}
}

func TestExpectedDigests(t *testing.T) {
	formatted := strings.Repeat("0f", 32)
	configPath := writeConfig(t, `
deploy:
  digests:
    /usr/bin/python-suid: `+formatted+`
`)
	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	digests, err := cfg.ExpectedDigests()
	if err != nil {
		t.Fatalf("ExpectedDigests: %v", err)
	}
	digest, ok := digests["/usr/bin/python-suid"]
	if !ok {
		t.Fatalf("digest missing: %v", digests)
	}
	if digest[0] != 0x0f || digest[31] != 0x0f {
		t.Errorf("digest = %x", digest)
	}
	if len(cfg.Deploy.Launchers) != 3 {
		t.Errorf("default launchers replaced: %v", cfg.Deploy.Launchers)
	}
}
