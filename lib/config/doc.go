// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the workspace
// filesystem daemon and the deployment checks.
//
// Configuration is loaded from a single file specified by either the
// SUIDGATE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file search.
// Running without a file uses [Default], which matches the layout
// compiled into the launchers.
//
// The file may contain development and production sections that
// override base values when [Config].Environment matches. Development
// defaults to a mount without allow_other, since development mounts are
// made by unprivileged users, unless the file sets allow_other itself.
//
// ${HOME} and ${VAR:-default} patterns are expanded in path fields.
//
// The setuid launchers never load configuration. Their trusted prefixes,
// store translation, and interpreters are compiled in, so nothing a
// caller controls can change what they trust.
package config
