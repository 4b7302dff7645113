// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/suidgate/lib/binhash"
	"github.com/bureau-foundation/suidgate/lib/storepath"
	"github.com/bureau-foundation/suidgate/lib/workspacefs"
)

// EnvironmentVariable names the variable Load reads the config path from.
const EnvironmentVariable = "SUIDGATE_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Production is for sandbox hosts.
	Production Environment = "production"
)

// Config is the master configuration for the workspace filesystem daemon
// and the deployment checks.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Workspace configures the workspace filesystem mount.
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Deploy configures the deployment checks.
	Deploy DeployConfig `yaml:"deploy"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`

	// allowOtherSet records whether the file set workspace.allow_other
	// explicitly, so environment defaults do not overwrite it.
	allowOtherSet bool
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Workspace *WorkspaceOverrides `yaml:"workspace,omitempty"`
	Deploy    *DeployConfig       `yaml:"deploy,omitempty"`
}

// WorkspaceOverrides mirrors WorkspaceConfig. Zero values and nil
// pointers leave the base value in place.
type WorkspaceOverrides struct {
	Mountpoint string `yaml:"mountpoint"`
	Store      string `yaml:"store"`
	PrimaryUID uint32 `yaml:"primary_uid"`
	AllowOther *bool  `yaml:"allow_other"`
	FsName     string `yaml:"fs_name"`
	Debug      *bool  `yaml:"debug"`
}

// WorkspaceConfig configures the workspace filesystem.
type WorkspaceConfig struct {
	// Mountpoint is where the filesystem is mounted.
	// Default: /run/workspace/bin
	Mountpoint string `yaml:"mountpoint"`

	// Store is the privileged binary store the mount exposes.
	// Default: /run/dojo/bin
	Store string `yaml:"store"`

	// PrimaryUID is the sandbox user that always sees the store.
	// Default: 1000
	PrimaryUID uint32 `yaml:"primary_uid"`

	// AllowOther lets users other than the mounting user access the
	// mount. Default: true
	AllowOther bool `yaml:"allow_other"`

	// FsName is reported in /proc/mounts. Default: workspacefs
	FsName string `yaml:"fs_name"`

	// Debug logs every FUSE request.
	Debug bool `yaml:"debug"`
}

// DeployConfig configures the deployment checks.
type DeployConfig struct {
	// Launchers are the installed setuid launcher binaries.
	// Default: /usr/bin/{python,bash,sh}-suid
	Launchers []string `yaml:"launchers"`

	// Digests maps a launcher path to the hex BLAKE3 launcher digest the
	// installed binary must have (see package binhash). Launchers without
	// an entry are hashed and reported but not compared.
	Digests map[string]string `yaml:"digests"`
}

// Default returns the default configuration. These defaults are the
// compiled-in layout the launchers assume.
func Default() *Config {
	return &Config{
		Environment: Production,
		Workspace: WorkspaceConfig{
			Mountpoint: filepath.Clean(storepath.MountPrefix),
			Store:      storepath.StoreRoot,
			PrimaryUID: workspacefs.DefaultPrimaryUID,
			AllowOther: true,
			FsName:     "workspacefs",
		},
		Deploy: DeployConfig{
			Launchers: []string{
				"/usr/bin/python-suid",
				"/usr/bin/bash-suid",
				"/usr/bin/sh-suid",
			},
		},
	}
}

// Load loads configuration from the SUIDGATE_CONFIG environment variable.
// There is no discovery: if the variable is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your config file, or use --config flag", EnvironmentVariable)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, applies the
// section for the configured environment, and expands ${VAR} patterns in
// path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	var explicit struct {
		Workspace struct {
			AllowOther *bool `yaml:"allow_other"`
		} `yaml:"workspace"`
	}
	if err := yaml.Unmarshal(data, &explicit); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	c.allowOtherSet = explicit.Workspace.AllowOther != nil
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
		// Development mounts are usually made by an unprivileged user
		// without user_allow_other.
		if !c.allowOtherSet {
			c.Workspace.AllowOther = false
		}
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Workspace != nil {
		workspace := overrides.Workspace
		if workspace.Mountpoint != "" {
			c.Workspace.Mountpoint = workspace.Mountpoint
		}
		if workspace.Store != "" {
			c.Workspace.Store = workspace.Store
		}
		if workspace.PrimaryUID != 0 {
			c.Workspace.PrimaryUID = workspace.PrimaryUID
		}
		if workspace.AllowOther != nil {
			c.Workspace.AllowOther = *workspace.AllowOther
		}
		if workspace.Debug != nil {
			c.Workspace.Debug = *workspace.Debug
		}
		if workspace.FsName != "" {
			c.Workspace.FsName = workspace.FsName
		}
	}

	if overrides.Deploy != nil {
		if len(overrides.Deploy.Launchers) > 0 {
			c.Deploy.Launchers = overrides.Deploy.Launchers
		}
		if len(overrides.Deploy.Digests) > 0 {
			c.Deploy.Digests = overrides.Deploy.Digests
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Workspace.Mountpoint = expandVars(c.Workspace.Mountpoint, vars)
	c.Workspace.Store = expandVars(c.Workspace.Store, vars)
	for i, launcher := range c.Deploy.Launchers {
		c.Deploy.Launchers[i] = expandVars(launcher, vars)
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Workspace.Mountpoint == "" {
		errs = append(errs, fmt.Errorf("workspace.mountpoint is required"))
	} else if !filepath.IsAbs(c.Workspace.Mountpoint) {
		errs = append(errs, fmt.Errorf("workspace.mountpoint must be absolute: %s", c.Workspace.Mountpoint))
	}

	if c.Workspace.Store == "" {
		errs = append(errs, fmt.Errorf("workspace.store is required"))
	} else if !filepath.IsAbs(c.Workspace.Store) {
		errs = append(errs, fmt.Errorf("workspace.store must be absolute: %s", c.Workspace.Store))
	}

	if c.Workspace.Mountpoint != "" && filepath.Clean(c.Workspace.Mountpoint) == filepath.Clean(c.Workspace.Store) {
		errs = append(errs, fmt.Errorf("workspace.mountpoint and workspace.store must differ"))
	}

	for _, launcher := range c.Deploy.Launchers {
		if !filepath.IsAbs(launcher) {
			errs = append(errs, fmt.Errorf("deploy.launchers entry must be absolute: %s", launcher))
		}
	}

	if _, err := c.ExpectedDigests(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ExpectedDigests parses deploy.digests.
func (c *Config) ExpectedDigests() (map[string]binhash.Digest, error) {
	digests := make(map[string]binhash.Digest, len(c.Deploy.Digests))
	for launcher, formatted := range c.Deploy.Digests {
		digest, err := binhash.ParseDigest(formatted)
		if err != nil {
			return nil, fmt.Errorf("deploy.digests[%s]: %w", launcher, err)
		}
		digests[launcher] = digest
	}
	return digests, nil
}

// RedirectsToStore reports whether the configured mountpoint and store
// match the translation compiled into the launchers. A mismatch means
// launchers will not follow paths through the mount.
func (c *Config) RedirectsToStore() bool {
	return filepath.Clean(c.Workspace.Mountpoint) == filepath.Clean(storepath.MountPrefix) &&
		filepath.Clean(c.Workspace.Store) == filepath.Clean(storepath.StoreRoot)
}
