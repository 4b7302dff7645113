// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package storepath holds the naming convention shared by the workspace
// filesystem and the setuid interpreter launchers: the workspace mount
// presents entries of the privileged store under a different prefix, and
// launchers translate that prefix back before resolving a script.
//
// Translation is a pure string operation. Nothing here touches the
// filesystem, and in particular nothing consults the workspace mount's
// visibility rules.
package storepath

import (
	"path"
	"strings"
)

const (
	// MountPrefix is the lexical prefix of paths inside the workspace
	// filesystem mount. The trailing slash is part of the prefix: the
	// mount directory itself is never redirected.
	MountPrefix = "/run/workspace/bin/"

	// StoreRoot is the privileged binary store that the workspace
	// filesystem mirrors.
	StoreRoot = "/run/dojo/bin"
)

// Redirect rewrites a path that lexically begins with MountPrefix to the
// equivalent path under StoreRoot. Any other path is returned unchanged.
// The remainder after the prefix is carried over verbatim (it is not
// cleaned); canonicalization is the caller's job.
func Redirect(scriptPath string) string {
	return RedirectTo(scriptPath, MountPrefix, StoreRoot)
}

// RedirectTo is Redirect with an explicit prefix and store root.
func RedirectTo(scriptPath, mountPrefix, storeRoot string) string {
	remainder, found := strings.CutPrefix(scriptPath, mountPrefix)
	if !found {
		return scriptPath
	}
	return strings.TrimSuffix(storeRoot, "/") + "/" + remainder
}

// Target returns the store path that a workspace entry named leaf links
// to: "<storeRoot>/<leaf>".
func Target(storeRoot, leaf string) string {
	return path.Join(storeRoot, leaf)
}
