// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// exitFunc terminates the process. Tests replace it to observe codes.
var exitFunc = os.Exit

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	exitFunc(1)
}

// ExitCoder is implemented by errors that carry their own process exit
// status.
type ExitCoder interface {
	ExitCode() int
}

// Exit terminates the process for err. A nil error exits 0. An error
// implementing ExitCoder exits with its code and prints nothing: such
// errors have already been reported through the logger. Any other error
// is handled by Fatal.
func Exit(err error) {
	if err == nil {
		exitFunc(0)
		return
	}
	var coder ExitCoder
	if errors.As(err, &coder) {
		exitFunc(coder.ExitCode())
		return
	}
	Fatal(err)
}
