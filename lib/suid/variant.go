// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package suid

import "strings"

// Shebang is one first-line literal a variant accepts. Line includes the
// trailing newline and is compared byte for byte.
type Shebang struct {
	Line string

	// Clean marks the "/usr/bin/env -iS" form: the script asked to run
	// with an empty environment, so the launcher refuses to run it with
	// anything else.
	Clean bool
}

// Variant describes one compiled launcher.
type Variant struct {
	// Name is the launcher's name, e.g. "python-suid".
	Name string

	// Interpreter is the absolute path that is executed.
	Interpreter string

	// Flags follow the interpreter path in the child argument vector.
	Flags []string

	// Shebangs is the set of first lines this variant accepts. Sets of
	// different variants are disjoint.
	Shebangs []Shebang

	// ScriptArgument appends the canonical script path to the child
	// argument vector after Flags (python style).
	ScriptArgument bool

	// ShellSource passes a command that sources the canonical script
	// followed by the caller's original script argument as $0 (sh
	// style: -c '. "<path>"' <argv1>).
	ShellSource bool

	// Normalize collapses real, effective, and saved ids to the
	// effective ids before exec. Shells drop privilege when real and
	// effective ids differ, and would otherwise honor startup-file
	// variables under the caller's control.
	Normalize bool

	// ScrubEnv names environment variables removed before exec when
	// Normalize is set.
	ScrubEnv []string
}

// Match returns the accepted shebang equal to line.
func (v Variant) Match(line string) (Shebang, bool) {
	for _, shebang := range v.Shebangs {
		if shebang.Line == line {
			return shebang, true
		}
	}
	return Shebang{}, false
}

// Argv builds the child argument vector. scriptPath is the caller's
// original script argument, canonical the validated path, and passthrough
// the caller's remaining arguments, which are appended unmodified.
func (v Variant) Argv(scriptPath, canonical string, passthrough []string) []string {
	argv := make([]string, 0, 3+len(v.Flags)+len(passthrough))
	argv = append(argv, v.Interpreter)
	argv = append(argv, v.Flags...)
	if v.ScriptArgument {
		argv = append(argv, canonical)
	}
	if v.ShellSource {
		argv = append(argv, ". "+shellQuote(canonical), scriptPath)
	}
	argv = append(argv, passthrough...)
	return argv
}

// ScrubEnvironment returns environ without the variables named in
// ScrubEnv. The input slice is not modified.
func (v Variant) ScrubEnvironment(environ []string) []string {
	if len(v.ScrubEnv) == 0 {
		return environ
	}
	kept := make([]string, 0, len(environ))
	for _, entry := range environ {
		name, _, _ := strings.Cut(entry, "=")
		scrubbed := false
		for _, unwanted := range v.ScrubEnv {
			if name == unwanted {
				scrubbed = true
				break
			}
		}
		if !scrubbed {
			kept = append(kept, entry)
		}
	}
	return kept
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Python runs scripts with "/usr/bin/python -I --".
var Python = Variant{
	Name:        "python-suid",
	Interpreter: "/usr/bin/python",
	Flags:       []string{"-I", "--"},
	Shebangs: []Shebang{
		{Line: "#!/opt/pwn.college/python\n"},
		{Line: "#!/usr/bin/env python-suid\n"},
	},
	ScriptArgument: true,
}

// Bash runs scripts by sourcing them from "/bin/bash -c".
var Bash = Variant{
	Name:        "bash-suid",
	Interpreter: "/bin/bash",
	Flags:       []string{"-c"},
	Shebangs: []Shebang{
		{Line: "#!/opt/pwn.college/bash\n"},
		{Line: "#!/usr/bin/env bash-suid\n"},
		{Line: "#!/usr/bin/env -iS /opt/pwn.college/bash\n", Clean: true},
		{Line: "#!/usr/bin/env -iS bash-suid\n", Clean: true},
	},
	ShellSource: true,
	Normalize:   true,
	ScrubEnv:    []string{"BASH_ENV", "ENV"},
}

// Sh runs scripts by sourcing them from "/bin/sh -c".
var Sh = Variant{
	Name:        "sh-suid",
	Interpreter: "/bin/sh",
	Flags:       []string{"-c"},
	Shebangs: []Shebang{
		{Line: "#!/opt/pwn.college/sh\n"},
		{Line: "#!/usr/bin/env sh-suid\n"},
		{Line: "#!/usr/bin/env -iS /opt/pwn.college/sh\n", Clean: true},
		{Line: "#!/usr/bin/env -iS sh-suid\n", Clean: true},
	},
	ShellSource: true,
	Normalize:   true,
	ScrubEnv:    []string{"ENV"},
}
