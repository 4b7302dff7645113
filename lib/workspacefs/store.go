// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workspacefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"syscall"

	"github.com/bureau-foundation/suidgate/lib/storepath"
)

// DefaultPrimaryUID is the uid of the sandbox's primary user.
const DefaultPrimaryUID = 1000

// ErrNotExist is returned for entries that are absent or that the caller
// may not see. It wraps fs.ErrNotExist.
var ErrNotExist = fmt.Errorf("workspace entry %w", fs.ErrNotExist)

// Caller is the identity of the process making a filesystem request.
type Caller struct {
	UID uint32
	GID uint32
}

// Entry is one symlink of the workspace directory.
type Entry struct {
	// Name is the leaf name inside the workspace directory.
	Name string

	// Target is the store path the symlink points to.
	Target string

	// Ino is the inode number of the store entry, zero when unknown.
	Ino uint64
}

// Store exposes the privileged binary store rooted at Root.
type Store struct {
	// Root is the privileged store directory.
	Root string

	// PrimaryUID is always allowed to see entries.
	PrimaryUID uint32
}

// NewStore returns a Store for root with the default primary uid.
func NewStore(root string) *Store {
	return &Store{Root: root, PrimaryUID: DefaultPrimaryUID}
}

// Default returns the Store for the compiled-in store root.
func Default() *Store {
	return NewStore(storepath.StoreRoot)
}

// Accessible reports whether caller may see workspace entries.
func (s *Store) Accessible(caller Caller) bool {
	return caller.UID == s.PrimaryUID || caller.UID == caller.GID
}

// Lookup returns the entry for name if caller may see it and the store
// has an entry of that name. The store entry is stat'ed following
// symlinks: a dangling store symlink does not exist.
func (s *Store) Lookup(caller Caller, name string) (Entry, error) {
	if !s.Accessible(caller) || !validName(name) {
		return Entry{}, ErrNotExist
	}
	target := storepath.Target(s.Root, name)
	info, err := os.Stat(target)
	if err != nil {
		return Entry{}, ErrNotExist
	}
	return Entry{Name: name, Target: target, Ino: inodeOf(info)}, nil
}

// Readlink returns the symlink target of name: "<Root>/<name>".
func (s *Store) Readlink(caller Caller, name string) (string, error) {
	entry, err := s.Lookup(caller, name)
	if err != nil {
		return "", err
	}
	return entry.Target, nil
}

// List returns every store entry as a workspace entry for an accessible
// caller and nothing for anyone else. Entries are in directory order.
// Entries whose names cannot be looked up (".", "..") are skipped; the
// caller presents those itself.
func (s *Store) List(caller Caller) ([]Entry, error) {
	if !s.Accessible(caller) {
		return nil, nil
	}
	directory, err := os.Open(s.Root)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", s.Root, err)
	}
	defer directory.Close()

	dirEntries, err := directory.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("reading store %s: %w", s.Root, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if !validName(name) {
			continue
		}
		entry := Entry{Name: name, Target: storepath.Target(s.Root, name)}
		if info, err := dirEntry.Info(); err == nil {
			entry.Ino = inodeOf(info)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// IsNotExist reports whether err means the entry is absent or hidden.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// validName accepts single path components only.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsRune(name, '/')
}

func inodeOf(info fs.FileInfo) uint64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(stat.Ino)
	}
	return 0
}
