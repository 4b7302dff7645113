// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bash-suid runs a bash script with the privilege of the script's root
// owner. The script is sourced through bash -c, so it sees its own path
// as $0. BASH_ENV and ENV are removed first, and the real uid and gid
// are raised to the effective ones so bash keeps its privilege.
//
// Installed root-owned with the setuid bit, it is named in a script's
// shebang line. It refuses (with a distinct exit status per reason)
// anything not located under a trusted prefix, not owned by root,
// missing its own setuid bit, or lacking one of the accepted shebang
// lines. See package suid for the full pipeline.
//
// Usage:
//
//	bash-suid <script> [args...]
//
// There are no flags: every argument is passed to the script.
package main

import "github.com/bureau-foundation/suidgate/lib/suid"

func main() {
	suid.Main(suid.Bash)
}
