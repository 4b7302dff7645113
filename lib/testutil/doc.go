// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for suidgate packages.
//
// Several checks depend on host capabilities that CI sandboxes do not
// always grant. [RequireFUSE] skips a test unless a FUSE mount can be
// made. [WriteMode] and [RequireSetuid] create files with the setuid bit
// and skip when the filesystem (or a nosuid mount) silently drops it.
// [Chmod] applies a mode to an existing path with the same skip.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no suidgate-internal dependencies.
package testutil
