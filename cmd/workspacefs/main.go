// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// workspacefs serves the workspace directory: a FUSE filesystem that
// shows each entry of the privileged binary store as a symlink into the
// store, and shows nothing at all to callers outside the workspace.
//
// Usage:
//
//	workspacefs mount [flags]
//	workspacefs check [flags]
//	workspacefs version
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/suidgate/lib/config"
	"github.com/bureau-foundation/suidgate/lib/deploycheck"
	"github.com/bureau-foundation/suidgate/lib/process"
	"github.com/bureau-foundation/suidgate/lib/suid"
	"github.com/bureau-foundation/suidgate/lib/version"
	"github.com/bureau-foundation/suidgate/lib/workspacefs"
	workspacefuse "github.com/bureau-foundation/suidgate/lib/workspacefs/fuse"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	logLevel := new(slog.LevelVar)
	logger := newLogger(logLevel)

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "mount":
		err = mountCmd(args, logger, logLevel)
	case "check":
		err = checkCmd(args, logger, logLevel)
	case "version", "--version", "-v":
		version.Fprint(os.Stdout, "workspacefs")
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	process.Exit(err)
}

// newLogger logs human-readable text when stderr is a terminal and JSON
// otherwise, so a supervised daemon's output can be ingested as-is. The
// level is read from level on every record, so it can be raised once the
// configuration is known.
func newLogger(level *slog.LevelVar) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

func printUsage() {
	fmt.Fprint(os.Stderr, `workspacefs - Serve the privileged binary store inside sandboxes

USAGE
    workspacefs <command> [flags]

COMMANDS
    mount    Mount the workspace filesystem and serve until interrupted
    check    Verify the host deployment the launchers rely on
    version  Show version

FLAGS (mount and check)
    --config PATH       Config file (default: $SUIDGATE_CONFIG, else built-in defaults)
    --mountpoint PATH   Workspace mountpoint (default: /run/workspace/bin)
    --store PATH        Privileged store (default: /run/dojo/bin)
    --primary-uid UID   Sandbox user that always sees the store (default: 1000)
    --allow-other       Let other users access the mount (default: true)
    --debug             Log at debug level and trace every FUSE request
    --color WHEN        Color check output: auto, always, or never (default: auto)

ENVIRONMENT
    SUIDGATE_CONFIG  Path to the config file
`)
}

// workspaceFlags are the flags shared by mount and check. Each one, when
// set, overrides the loaded configuration.
type workspaceFlags struct {
	configPath string
	mountpoint string
	store      string
	primaryUID uint32
	allowOther bool
	debug      bool
	color      string
}

func (f *workspaceFlags) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.configPath, "config", "", "config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&f.mountpoint, "mountpoint", "", "workspace mountpoint")
	flagSet.StringVar(&f.store, "store", "", "privileged binary store")
	flagSet.Uint32Var(&f.primaryUID, "primary-uid", workspacefs.DefaultPrimaryUID, "sandbox user that always sees the store")
	flagSet.BoolVar(&f.allowOther, "allow-other", true, "let users other than the mounting user access the mount")
	flagSet.BoolVar(&f.debug, "debug", false, "log at debug level and trace every FUSE request")
	flagSet.StringVar(&f.color, "color", "auto", "color check output: auto, always, or never")
}

// load builds the effective configuration: the config file if one is
// named, otherwise the defaults, then any flags the user set.
func (f *workspaceFlags) load(flagSet *pflag.FlagSet) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case f.configPath != "":
		cfg, err = config.LoadFile(f.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if flagSet.Changed("mountpoint") {
		cfg.Workspace.Mountpoint = f.mountpoint
	}
	if flagSet.Changed("store") {
		cfg.Workspace.Store = f.store
	}
	if flagSet.Changed("primary-uid") {
		cfg.Workspace.PrimaryUID = f.primaryUID
	}
	if flagSet.Changed("allow-other") {
		cfg.Workspace.AllowOther = f.allowOther
	}
	if flagSet.Changed("debug") {
		cfg.Workspace.Debug = f.debug
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parseFlags(name string, args []string) (*pflag.FlagSet, *workspaceFlags, error) {
	flags := &workspaceFlags{}
	flagSet := pflag.NewFlagSet("workspacefs "+name, pflag.ContinueOnError)
	flags.addFlags(flagSet)
	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return nil, nil, fmt.Errorf("unexpected argument: %s", extra[0])
	}
	switch flags.color {
	case "auto", "always", "never":
	default:
		return nil, nil, fmt.Errorf("--color must be auto, always, or never, got %q", flags.color)
	}
	return flagSet, flags, nil
}

func mountCmd(args []string, logger *slog.Logger, logLevel *slog.LevelVar) error {
	flagSet, flags, err := parseFlags("mount", args)
	if err != nil {
		return err
	}
	cfg, err := flags.load(flagSet)
	if err != nil {
		return err
	}
	applyLogLevel(cfg, logLevel)
	warnOnRedirectMismatch(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := &workspacefs.Store{Root: cfg.Workspace.Store, PrimaryUID: cfg.Workspace.PrimaryUID}
	server, err := workspacefuse.Mount(workspacefuse.Options{
		Mountpoint: cfg.Workspace.Mountpoint,
		Store:      store,
		AllowOther: cfg.Workspace.AllowOther,
		FsName:     cfg.Workspace.FsName,
		Debug:      cfg.Workspace.Debug,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	served := make(chan struct{})
	go func() {
		server.Wait()
		close(served)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down", "mountpoint", cfg.Workspace.Mountpoint)
		if err := server.Unmount(); err != nil {
			return fmt.Errorf("unmounting %s: %w", cfg.Workspace.Mountpoint, err)
		}
		<-served
	case <-served:
		logger.Info("filesystem unmounted externally", "mountpoint", cfg.Workspace.Mountpoint)
	}
	return nil
}

func checkCmd(args []string, logger *slog.Logger, logLevel *slog.LevelVar) error {
	flagSet, flags, err := parseFlags("check", args)
	if err != nil {
		return err
	}
	cfg, err := flags.load(flagSet)
	if err != nil {
		return err
	}
	applyLogLevel(cfg, logLevel)
	warnOnRedirectMismatch(cfg, logger)

	digests, err := cfg.ExpectedDigests()
	if err != nil {
		return err
	}

	validator := deploycheck.NewValidator()
	validator.ExpectDigests(digests)
	validator.ValidateAll(cfg.Workspace.Store, suid.DefaultPathPolicy, cfg.Deploy.Launchers)
	switch flags.color {
	case "always":
		validator.PrintResultsWithProfile(os.Stdout, termenv.ANSI256)
	case "never":
		validator.PrintResultsWithProfile(os.Stdout, termenv.Ascii)
	default:
		validator.PrintResults(os.Stdout)
	}
	if validator.HasErrors() {
		return checkFailed{}
	}
	return nil
}

// applyLogLevel sets the daemon log level from workspace.debug.
func applyLogLevel(cfg *config.Config, logLevel *slog.LevelVar) {
	if cfg.Workspace.Debug {
		logLevel.Set(slog.LevelDebug)
	} else {
		logLevel.Set(slog.LevelInfo)
	}
}

// warnOnRedirectMismatch logs when the configured layout differs from the
// one compiled into the launchers, which would leave scripts invoked
// through the mount unresolvable by the launchers.
func warnOnRedirectMismatch(cfg *config.Config, logger *slog.Logger) {
	if cfg.RedirectsToStore() {
		return
	}
	logger.Warn("workspace layout differs from the launchers' compiled redirection",
		"mountpoint", cfg.Workspace.Mountpoint,
		"store", cfg.Workspace.Store,
	)
}

// checkFailed exits 1 without a further message: PrintResults has
// already reported each failure.
type checkFailed struct{}

func (checkFailed) Error() string { return "deployment check failed" }
func (checkFailed) ExitCode() int { return 1 }
