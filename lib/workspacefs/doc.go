// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspacefs decides what the workspace filesystem shows to a
// caller. The workspace filesystem is a flat, read-only directory whose
// entries are symlinks into the privileged binary store: entry "name"
// links to "<store>/name".
//
// Visibility is a pure function of the caller's identity and the current
// contents of the store. A caller is allowed to see entries when its uid
// is the primary sandbox user, or when its uid equals its gid (the
// per-user identity convention of the sandbox). Everyone else sees an
// empty directory. Absent and hidden entries are indistinguishable:
// both are reported as [ErrNotExist], never as a permission error.
//
// Nothing is cached. Each call re-reads the store, so a change to the
// store is visible on the next request.
//
// The filesystem decides visibility only. Whether a resolved target may
// be executed with privilege is decided by the setuid launchers (package
// suid), which translate workspace paths themselves and never consult
// this package.
package workspacefs
