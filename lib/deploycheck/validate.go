// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package deploycheck verifies the host conditions the setuid launchers
// and the workspace filesystem rely on but cannot enforce themselves.
//
// The launchers check a script's location, owner, and mode once, then
// exec it by path. That is only sound if no unprivileged user can
// replace files in the privileged store or under a trusted prefix, and
// if the launchers themselves are installed root-owned and setuid.
package deploycheck

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/suidgate/lib/binhash"
)

// ValidationResult holds the result of a validation check.
type ValidationResult struct {
	Name    string
	Passed  bool
	Message string
	Warning bool // True if this is a warning, not an error.
}

// Validator accumulates deployment check results.
type Validator struct {
	results []ValidationResult
	errors  int

	// privilegedUID is the owner every checked path must have.
	privilegedUID uint32

	// fuseDevice is the FUSE device path.
	fuseDevice string

	// digests holds the expected digest of each launcher that has one.
	digests map[string]binhash.Digest
}

// NewValidator creates a validator expecting root ownership.
func NewValidator() *Validator {
	return &Validator{
		results:    make([]ValidationResult, 0),
		fuseDevice: "/dev/fuse",
	}
}

// Results returns all validation results.
func (v *Validator) Results() []ValidationResult {
	return v.results
}

// HasErrors returns true if any validation failed.
func (v *Validator) HasErrors() bool {
	return v.errors > 0
}

// pass records a successful validation.
func (v *Validator) pass(name, message string) {
	v.results = append(v.results, ValidationResult{
		Name:    name,
		Passed:  true,
		Message: message,
	})
}

// warn records a warning (not a failure).
func (v *Validator) warn(name, message string) {
	v.results = append(v.results, ValidationResult{
		Name:    name,
		Passed:  true,
		Message: message,
		Warning: true,
	})
}

// fail records a validation failure.
func (v *Validator) fail(name, message string) {
	v.results = append(v.results, ValidationResult{
		Name:    name,
		Passed:  false,
		Message: message,
	})
	v.errors++
}

// ExpectDigests sets the digests launchers must match. Launchers absent
// from digests are hashed and reported without comparison.
func (v *Validator) ExpectDigests(digests map[string]binhash.Digest) {
	v.digests = digests
}

// ValidateAll runs every deployment check.
func (v *Validator) ValidateAll(store string, trustedPrefixes []string, launchers []string) {
	v.ValidateStore(store)
	v.ValidateTrustedPrefixes(trustedPrefixes)
	v.ValidateLaunchers(launchers)
	v.ValidateFuse()
}

// ValidateStore checks that the privileged store is a root-owned
// directory that only its owner can modify.
func (v *Validator) ValidateStore(store string) {
	info, err := os.Stat(store)
	if err != nil {
		v.fail("store", fmt.Sprintf("cannot stat %s: %v", store, err))
		return
	}
	if !info.IsDir() {
		v.fail("store", fmt.Sprintf("not a directory: %s", store))
		return
	}
	if problem := v.ownershipProblem(info); problem != "" {
		v.fail("store", fmt.Sprintf("%s %s", store, problem))
		return
	}
	v.pass("store", fmt.Sprintf("protected: %s", store))
}

// ValidateTrustedPrefixes checks each trusted prefix directory that
// exists. Prefixes are matched literally by the launchers, so the
// directory named by a prefix is the one whose permissions matter.
func (v *Validator) ValidateTrustedPrefixes(prefixes []string) {
	for _, prefix := range prefixes {
		info, err := os.Stat(prefix)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				v.warn("trusted-prefix", fmt.Sprintf("not present: %s", prefix))
			} else {
				v.fail("trusted-prefix", fmt.Sprintf("cannot stat %s: %v", prefix, err))
			}
			continue
		}
		if problem := v.ownershipProblem(info); problem != "" {
			v.fail("trusted-prefix", fmt.Sprintf("%s %s", prefix, problem))
			continue
		}
		v.pass("trusted-prefix", fmt.Sprintf("protected: %s", prefix))
	}
}

// ValidateLaunchers checks that each launcher binary is a root-owned
// regular file with the setuid bit, and reports its digest.
func (v *Validator) ValidateLaunchers(launchers []string) {
	for _, launcher := range launchers {
		info, err := os.Stat(launcher)
		if err != nil {
			v.fail("launcher", fmt.Sprintf("cannot stat %s: %v", launcher, err))
			continue
		}
		if !info.Mode().IsRegular() {
			v.fail("launcher", fmt.Sprintf("not a regular file: %s", launcher))
			continue
		}
		if uid, ok := ownerOf(info); !ok || uid != v.privilegedUID {
			v.fail("launcher", fmt.Sprintf("%s is not owned by uid %d", launcher, v.privilegedUID))
			continue
		}
		if info.Mode()&fs.ModeSetuid == 0 {
			v.fail("launcher", fmt.Sprintf("%s does not have the setuid bit", launcher))
			continue
		}
		if info.Mode().Perm()&0o022 != 0 {
			v.fail("launcher", fmt.Sprintf("%s is group or world writable", launcher))
			continue
		}
		digest, err := binhash.HashFile(launcher)
		if err != nil {
			v.fail("launcher", fmt.Sprintf("cannot hash %s: %v", launcher, err))
			continue
		}
		formatted := binhash.FormatDigest(digest)
		if expected, ok := v.digests[launcher]; ok && expected != digest {
			v.fail("launcher", fmt.Sprintf("%s digest mismatch: have %s, want %s",
				launcher, formatted, binhash.FormatDigest(expected)))
			continue
		}
		v.pass("launcher", fmt.Sprintf("installed: %s (blake3 %s)", launcher, formatted))
	}
}

// ValidateFuse checks that the FUSE device exists.
func (v *Validator) ValidateFuse() {
	info, err := os.Stat(v.fuseDevice)
	if err != nil {
		v.warn("fuse", fmt.Sprintf("%s not available (workspace filesystem cannot mount)", v.fuseDevice))
		return
	}
	if info.Mode()&fs.ModeCharDevice == 0 {
		v.warn("fuse", fmt.Sprintf("%s is not a character device", v.fuseDevice))
		return
	}
	v.pass("fuse", fmt.Sprintf("available: %s", v.fuseDevice))
}

// ownershipProblem describes why info is not safe to trust, or returns
// "" when it is owned by the privileged uid and not group or world
// writable. Sticky world-writable directories are still rejected: any
// user could add a file there.
func (v *Validator) ownershipProblem(info fs.FileInfo) string {
	uid, ok := ownerOf(info)
	if !ok {
		return "has unknown ownership"
	}
	if uid != v.privilegedUID {
		return fmt.Sprintf("is owned by uid %d, want %d", uid, v.privilegedUID)
	}
	if info.Mode().Perm()&0o022 != 0 {
		return "is group or world writable"
	}
	return ""
}

func ownerOf(info fs.FileInfo) (uint32, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return stat.Uid, true
}

// PrintResults writes validation results to a writer. Status marks are
// colored when the writer is a color-capable terminal.
func (v *Validator) PrintResults(w io.Writer) {
	v.printResults(w, lipgloss.NewRenderer(w))
}

// PrintResultsWithProfile is PrintResults with a fixed color profile
// (termenv.Ascii for none) instead of detection.
func (v *Validator) PrintResultsWithProfile(w io.Writer, profile termenv.Profile) {
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	// The renderer re-detects from the environment unless the profile
	// is set explicitly.
	renderer.SetColorProfile(profile)
	v.printResults(w, renderer)
}

func (v *Validator) printResults(w io.Writer, renderer *lipgloss.Renderer) {
	passStyle := renderer.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle := renderer.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle := renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)

	for _, r := range v.results {
		var prefix string
		if r.Passed {
			if r.Warning {
				prefix = warnStyle.Render("⚠")
			} else {
				prefix = passStyle.Render("✓")
			}
		} else {
			prefix = failStyle.Render("✗")
		}
		fmt.Fprintf(w, "%s %s: %s\n", prefix, r.Name, r.Message)
	}

	fmt.Fprintln(w)
	if v.HasErrors() {
		fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("Validation failed with %d error(s)", v.errors)))
	} else {
		fmt.Fprintln(w, passStyle.Render("Deployment is ready"))
	}
}
