// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package suid

import "fmt"

// Reason identifies which stage of the launcher rejected an invocation.
// The numeric value is the process exit status.
type Reason int

const (
	// MissingArgument: no script path was supplied.
	MissingArgument Reason = 1
	// PathNotResolvable: the script path could not be canonicalized.
	PathNotResolvable Reason = 2
	// PathNotTrusted: the canonical path is outside every trusted prefix.
	PathNotTrusted Reason = 3
	// NotOwnedByPrivilegedUser: the script is not owned by root.
	NotOwnedByPrivilegedUser Reason = 4
	// MissingPrivilegeBit: the script does not have the setuid bit.
	MissingPrivilegeBit Reason = 5
	// ShebangMismatch: the first line is not one this launcher accepts.
	ShebangMismatch Reason = 6
	// EnvironmentNotClean: a clean-environment script was invoked with
	// a non-empty environment.
	EnvironmentNotClean Reason = 7

	// LaunchFailed is not an authorization verdict. It reports that an
	// authorized script could not be started (id normalization or exec
	// failed).
	LaunchFailed Reason = 8
)

var reasonNames = map[Reason]string{
	MissingArgument:          "missing script argument",
	PathNotResolvable:        "script path does not resolve",
	PathNotTrusted:           "script is not in a trusted location",
	NotOwnedByPrivilegedUser: "script is not owned by root",
	MissingPrivilegeBit:      "script does not have the setuid bit",
	ShebangMismatch:          "script shebang does not select this interpreter",
	EnvironmentNotClean:      "script requires an empty environment",
	LaunchFailed:             "interpreter could not be started",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Error is returned for every launcher failure. Path is the most
// resolved form of the script path known when the stage failed.
type Error struct {
	Reason Reason
	Path   string
	Err    error
}

func (e *Error) Error() string {
	message := e.Reason.String()
	if e.Path != "" {
		message += ": " + e.Path
	}
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit status for this failure.
func (e *Error) ExitCode() int {
	return int(e.Reason)
}

func reject(reason Reason, path string, err error) *Error {
	return &Error{Reason: reason, Path: path, Err: err}
}
