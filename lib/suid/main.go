// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package suid

import (
	"log/slog"
	"os"
	"runtime"

	"github.com/bureau-foundation/suidgate/lib/process"
)

// Main is the entry point shared by the launcher binaries. It runs the
// launcher for variant against the process arguments and environment
// and exits with the failing stage's status. It does not return.
//
// Nothing read from the environment changes launcher behavior: the log
// level, policy, and variant are all fixed at build time.
func Main(variant Variant) {
	// Keep id changes and exec on one OS thread.
	runtime.LockOSThread()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})).With("component", variant.Name)

	err := New(variant, logger).Run(os.Args, os.Environ())
	if err == nil {
		err = reject(LaunchFailed, variant.Interpreter, nil)
	}
	process.Exit(err)
}
