// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package suid

import "strings"

// PathPolicy is the ordered set of trusted path prefixes. A canonical
// path is trusted when some prefix is a literal string prefix of it.
//
// Matching is not segment-aware: a prefix without a trailing slash also
// matches sibling names ("/opt/pwn" matches "/opt/pwn.college-evil/x").
// Every entry of DefaultPathPolicy ends in "/" so it only matches paths
// inside its directory.
type PathPolicy []string

// DefaultPathPolicy is compiled into every launcher.
var DefaultPathPolicy = PathPolicy{
	"/challenge/",
	"/opt/pwn.college/",
	"/nix/",
}

// Allows reports whether canonicalPath begins with a trusted prefix.
func (p PathPolicy) Allows(canonicalPath string) bool {
	for _, prefix := range p {
		if strings.HasPrefix(canonicalPath, prefix) {
			return true
		}
	}
	return false
}
