// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package suid

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/suidgate/lib/storepath"
)

// maxShebangLength bounds the first-line read. A line longer than this
// is truncated and can never equal an accepted literal.
const maxShebangLength = unix.PathMax - 1

// Script is the caller-supplied script path and the canonical form all
// checks operate on.
type Script struct {
	// Requested is argv[1] exactly as the caller passed it.
	Requested string

	// Canonical is the absolute, symlink-free path produced by the one
	// canonicalization the launcher performs.
	Canonical string
}

// Ownership holds the lstat facts of the canonical path.
type Ownership struct {
	UID  uint32
	Mode uint32
	Dev  uint64
	Ino  uint64
}

// Authorization is the result of a successful Authorize.
type Authorization struct {
	Script    Script
	Ownership Ownership
	Shebang   Shebang
}

// Launcher validates and runs scripts for one Variant. Construct it with
// New; the zero value is not usable.
type Launcher struct {
	// Variant is the interpreter this launcher runs.
	Variant Variant

	// Policy is the set of trusted path prefixes.
	Policy PathPolicy

	// PrivilegedUID is the uid a script must be owned by.
	PrivilegedUID uint32

	// MountPrefix and StoreRoot define workspace redirection (see
	// package storepath).
	MountPrefix string
	StoreRoot   string

	// Logger receives the rejection diagnostic.
	Logger *slog.Logger

	// execFunc replaces the process image. nil means unix.Exec.
	// Injectable so tests can capture the child vector.
	execFunc func(argv0 string, argv []string, envv []string) error

	// normalizeFunc collapses process ids before exec. nil means
	// normalizeIDs.
	normalizeFunc func() error
}

// New returns a launcher for variant with the compiled-in policy: the
// default trusted prefixes, uid 0, and the workspace mount convention.
func New(variant Variant, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Launcher{
		Variant:       variant,
		Policy:        DefaultPathPolicy,
		PrivilegedUID: 0,
		MountPrefix:   storepath.MountPrefix,
		StoreRoot:     storepath.StoreRoot,
		Logger:        logger,
	}
}

// Authorize runs the authorization pipeline for args (the full argument
// vector, args[0] being the launcher name) and environ. It returns an
// *Error for the first failing stage.
func (l *Launcher) Authorize(args []string, environ []string) (*Authorization, error) {
	if len(args) < 2 {
		return nil, reject(MissingArgument, "", nil)
	}
	requested := args[1]

	redirected := storepath.RedirectTo(requested, l.MountPrefix, l.StoreRoot)

	canonical, err := canonicalize(redirected)
	if err != nil {
		return nil, reject(PathNotResolvable, redirected, err)
	}

	if !l.Policy.Allows(canonical) {
		return nil, reject(PathNotTrusted, canonical, nil)
	}

	ownership, err := lstatOwnership(canonical)
	if err != nil {
		return nil, reject(PathNotResolvable, canonical, err)
	}
	if ownership.UID != l.PrivilegedUID {
		return nil, reject(NotOwnedByPrivilegedUser, canonical,
			fmt.Errorf("owned by uid %d", ownership.UID))
	}
	if ownership.Mode&unix.S_ISUID == 0 {
		return nil, reject(MissingPrivilegeBit, canonical, nil)
	}

	line, err := readFirstLine(canonical, ownership)
	if err != nil {
		return nil, reject(ShebangMismatch, canonical, err)
	}
	shebang, ok := l.Variant.Match(line)
	if !ok {
		return nil, reject(ShebangMismatch, canonical, nil)
	}

	if shebang.Clean && len(environ) != 0 {
		return nil, reject(EnvironmentNotClean, canonical,
			fmt.Errorf("%d environment variables set", len(environ)))
	}

	return &Authorization{
		Script:    Script{Requested: requested, Canonical: canonical},
		Ownership: ownership,
		Shebang:   shebang,
	}, nil
}

// Run authorizes args and environ and replaces the process image with
// the variant's interpreter. It only returns on failure, or when an
// injected exec function returns nil.
func (l *Launcher) Run(args []string, environ []string) error {
	authorization, err := l.Authorize(args, environ)
	if err != nil {
		l.logRejection(err)
		return err
	}

	childEnviron := environ
	if l.Variant.Normalize {
		normalize := l.normalizeFunc
		if normalize == nil {
			normalize = normalizeIDs
		}
		if err := normalize(); err != nil {
			failure := reject(LaunchFailed, authorization.Script.Canonical, err)
			l.logRejection(failure)
			return failure
		}
		childEnviron = l.Variant.ScrubEnvironment(environ)
	}

	argv := l.Variant.Argv(authorization.Script.Requested, authorization.Script.Canonical, args[2:])

	l.Logger.Debug("executing interpreter",
		"launcher", l.Variant.Name,
		"script", authorization.Script.Canonical,
		"argv", argv,
	)

	execFunction := l.execFunc
	if execFunction == nil {
		execFunction = unix.Exec
	}
	if err := execFunction(argv[0], argv, childEnviron); err != nil {
		failure := reject(LaunchFailed, argv[0], err)
		l.logRejection(failure)
		return failure
	}
	return nil
}

func (l *Launcher) logRejection(err error) {
	var failure *Error
	if !errors.As(err, &failure) {
		l.Logger.Error("launcher failed", "launcher", l.Variant.Name, "error", err)
		return
	}
	attributes := []any{
		"launcher", l.Variant.Name,
		"reason", failure.Reason.String(),
		"status", failure.ExitCode(),
	}
	if failure.Path != "" {
		attributes = append(attributes, "path", failure.Path)
	}
	if failure.Err != nil {
		attributes = append(attributes, "error", failure.Err)
	}
	l.Logger.Error("refusing to run script", attributes...)
}

// canonicalize resolves scriptPath to an absolute path with every
// symlink followed. A relative path is anchored at the working directory
// without lexical cleaning, so ".." is applied to resolved components
// the way realpath(3) does.
func canonicalize(scriptPath string) (string, error) {
	if scriptPath == "" {
		return "", os.ErrNotExist
	}
	if !filepath.IsAbs(scriptPath) {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		scriptPath = workingDirectory + string(filepath.Separator) + scriptPath
	}
	return filepath.EvalSymlinks(scriptPath)
}

func lstatOwnership(canonical string) (Ownership, error) {
	var stat unix.Stat_t
	if err := unix.Lstat(canonical, &stat); err != nil {
		return Ownership{}, &os.PathError{Op: "lstat", Path: canonical, Err: err}
	}
	return Ownership{
		UID:  stat.Uid,
		Mode: stat.Mode,
		Dev:  uint64(stat.Dev),
		Ino:  uint64(stat.Ino),
	}, nil
}

// readFirstLine reads the first line of canonical, including its newline.
// The file is opened without following a final symlink and must be the
// same object the ownership checks examined.
func readFirstLine(canonical string, ownership Ownership) (string, error) {
	fd, err := unix.Open(canonical, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC|unix.O_NONBLOCK, 0)
	if err != nil {
		return "", &os.PathError{Op: "open", Path: canonical, Err: err}
	}
	file := os.NewFile(uintptr(fd), canonical)
	defer file.Close()

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return "", &os.PathError{Op: "fstat", Path: canonical, Err: err}
	}
	if uint64(stat.Dev) != ownership.Dev || uint64(stat.Ino) != ownership.Ino {
		return "", fmt.Errorf("%s changed after ownership check", canonical)
	}

	reader := bufio.NewReader(io.LimitReader(file, maxShebangLength))
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading %s: %w", canonical, err)
	}
	return line, nil
}

// normalizeIDs sets real, effective, and saved gids and uids to the
// current effective ids. Gids first: changing them needs the privilege
// that setting uids may give up.
func normalizeIDs() error {
	egid := unix.Getegid()
	if err := unix.Setresgid(egid, egid, egid); err != nil {
		return fmt.Errorf("setresgid(%d): %w", egid, err)
	}
	euid := unix.Geteuid()
	if err := unix.Setresuid(euid, euid, euid); err != nil {
		return fmt.Errorf("setresuid(%d): %w", euid, err)
	}
	return nil
}
