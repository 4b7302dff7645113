// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuse serves the workspace filesystem over FUSE.
//
// The mount is one flat directory. Each entry is a symlink named after
// an entry of the privileged store and pointing at it:
//
//	/run/workspace/bin/py -> /run/dojo/bin/py
//
// Every request is answered from package workspacefs using the identity
// of the requesting process. Callers who may not see the store get an
// empty directory, and lookups, attribute queries, and readlink all
// report ENOENT for them. The kernel is told not to cache entries,
// attributes, or negative lookups, because the answer differs between
// callers.
//
// # Write Path
//
// Not implemented. No create, write, or unlink operations exist; the
// kernel reports them as unsupported.
package fuse
