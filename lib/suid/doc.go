// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package suid implements the setuid interpreter launcher: a root-owned,
// setuid program that runs an interpreter script with elevated identity
// only after the script passes an ordered authorization pipeline.
//
// One launcher core serves every interpreter. A [Variant] describes what
// differs between the python, bash, and sh launchers (interpreter path,
// flags, the accepted shebang literals, and whether privilege
// normalization applies); each binary under cmd/ selects its variant at
// build time and calls [Main].
//
// # Pipeline
//
// [Launcher.Authorize] evaluates, in order, and stops at the first
// failure:
//
//  1. a script argument is present
//  2. workspace mount paths are redirected to the privileged store
//  3. the path is canonicalized exactly once
//  4. the canonical path starts with a trusted prefix ([PathPolicy])
//  5. the canonical path is owned by the privileged uid (lstat)
//  6. the canonical path has the set-user-id bit
//  7. the first line is one of the variant's shebang literals
//  8. a clean-environment shebang sees an empty environment
//
// [Launcher.Run] then normalizes ids for shell variants, builds the child
// argument vector, and replaces the process image. Every failure is an
// [*Error] whose [Error.ExitCode] identifies the failing stage.
//
// # Deployment invariant
//
// The checks operate on the canonical path string produced once by
// step 3. They cannot stop a caller who is able to replace the file at
// that path between the checks and exec. The privileged store and every
// trusted prefix must therefore not be writable by unprivileged users;
// the workspacefs check command verifies this on a host.
package suid
