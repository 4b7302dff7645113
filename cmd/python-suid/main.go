// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// python-suid runs a Python script with the privilege of the script's
// root owner. The interpreter is started isolated (/usr/bin/python -I),
// so PYTHONPATH, the user site directory, and the script's directory
// never reach sys.path.
//
// Installed root-owned with the setuid bit, it is named in a script's
// shebang line. It refuses (with a distinct exit status per reason)
// anything not located under a trusted prefix, not owned by root,
// missing its own setuid bit, or lacking one of the accepted shebang
// lines. See package suid for the full pipeline.
//
// Usage:
//
//	python-suid <script> [args...]
//
// There are no flags: every argument is passed to the script.
package main

import "github.com/bureau-foundation/suidgate/lib/suid"

func main() {
	suid.Main(suid.Python)
}
