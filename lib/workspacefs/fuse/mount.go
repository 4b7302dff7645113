// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/bureau-foundation/suidgate/lib/workspacefs"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	Mountpoint string

	// Store decides visibility and resolves entries.
	Store *workspacefs.Store

	// AllowOther permits users other than the mounting user to access
	// the mount. Every sandbox user needs this in production. Requires
	// root or user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// FsName is the filesystem name reported in /proc/mounts. Empty
	// uses "workspacefs".
	FsName string

	// Debug logs every FUSE request to stderr.
	Debug bool

	// Logger receives diagnostic messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// Mount mounts the workspace filesystem at the configured mountpoint.
// The caller must call Unmount on the returned Server when done. The
// mountpoint directory is created if it does not exist.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if options.FsName == "" {
		options.FsName = "workspacefs"
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := &rootNode{options: &options}

	server, err := gofuse.Mount(options.Mountpoint, root, mountOptions(&options))
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("workspace filesystem mounted",
		"mountpoint", options.Mountpoint,
		"store", options.Store.Root,
		"primary_uid", options.Store.PrimaryUID,
	)
	return server, nil
}

// mountOptions translates Options into go-fuse options.
func mountOptions(options *Options) *gofuse.Options {
	// Visibility depends on the caller, so the kernel must ask again
	// for every request.
	var noCache time.Duration

	return &gofuse.Options{
		EntryTimeout:    &noCache,
		AttrTimeout:     &noCache,
		NegativeTimeout: &noCache,
		MountOptions: fuse.MountOptions{
			FsName:     options.FsName,
			Name:       "workspace",
			AllowOther: options.AllowOther,
			Debug:      options.Debug,
			// Root mounts with mount(2) and does not need fusermount
			// installed; go-fuse falls back to fusermount on failure.
			DirectMount: os.Geteuid() == 0,
		},
	}
}

// callerFrom extracts the requesting identity. A request without caller
// information sees nothing.
func callerFrom(ctx context.Context) (workspacefs.Caller, bool) {
	caller, ok := fuse.FromContext(ctx)
	if !ok {
		return workspacefs.Caller{}, false
	}
	return workspacefs.Caller{UID: caller.Uid, GID: caller.Gid}, true
}

// rootIno is the inode number go-fuse assigns the root node. The mount
// is the only directory, so ".." is reported with the same number.
const rootIno = 1

// rootNode is the single workspace directory.
type rootNode struct {
	gofuse.Inode
	options *Options
}

var _ gofuse.InodeEmbedder = (*rootNode)(nil)
var _ gofuse.NodeGetattrer = (*rootNode)(nil)
var _ gofuse.NodeLookuper = (*rootNode)(nil)
var _ gofuse.NodeReaddirer = (*rootNode)(nil)

func (r *rootNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o755
	out.Nlink = 2
	return 0
}

func (r *rootNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return nil, syscall.ENOENT
	}
	entry, err := r.options.Store.Lookup(caller, name)
	if err != nil {
		return nil, syscall.ENOENT
	}

	fillLinkAttr(&out.Attr, entry)
	child := r.NewInode(ctx, &linkNode{options: r.options, name: name}, gofuse.StableAttr{Mode: syscall.S_IFLNK})
	return child, 0
}

// Readdir lists "." and ".." for every caller, followed by the store
// entries when the caller is accessible.
func (r *rootNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	caller, ok := callerFrom(ctx)
	entries, errno := r.listing(caller, ok)
	if errno != 0 {
		return nil, errno
	}
	return &sliceDirStream{entries: entries}, 0
}

// listing builds the directory stream for caller. known is false when
// the request carried no caller identity.
func (r *rootNode) listing(caller workspacefs.Caller, known bool) ([]fuse.DirEntry, syscall.Errno) {
	dirEntries := []fuse.DirEntry{
		{Name: ".", Mode: syscall.S_IFDIR, Ino: rootIno},
		{Name: "..", Mode: syscall.S_IFDIR, Ino: rootIno},
	}
	if !known {
		return dirEntries, 0
	}

	entries, err := r.options.Store.List(caller)
	if err != nil {
		r.options.Logger.Error("listing store failed",
			"store", r.options.Store.Root,
			"uid", caller.UID,
			"error", err,
		)
		return nil, storeErrno(err)
	}

	for _, entry := range entries {
		dirEntries = append(dirEntries, fuse.DirEntry{
			Name: entry.Name,
			Mode: syscall.S_IFLNK,
			Ino:  entry.Ino,
		})
	}
	return dirEntries, 0
}

// linkNode is one workspace symlink. Every request re-checks the
// caller; an inode handed out to one caller reveals nothing to another.
type linkNode struct {
	gofuse.Inode
	options *Options
	name    string
}

var _ gofuse.InodeEmbedder = (*linkNode)(nil)
var _ gofuse.NodeGetattrer = (*linkNode)(nil)
var _ gofuse.NodeReadlinker = (*linkNode)(nil)

func (l *linkNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	entry, errno := l.lookup(ctx)
	if errno != 0 {
		return errno
	}
	fillLinkAttr(&out.Attr, entry)
	return 0
}

func (l *linkNode) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	entry, errno := l.lookup(ctx)
	if errno != 0 {
		return nil, errno
	}
	return []byte(entry.Target), 0
}

func (l *linkNode) lookup(ctx context.Context) (workspacefs.Entry, syscall.Errno) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return workspacefs.Entry{}, syscall.ENOENT
	}
	entry, err := l.options.Store.Lookup(caller, l.name)
	if err != nil {
		return workspacefs.Entry{}, syscall.ENOENT
	}
	return entry, 0
}

// storeErrno reports the errno underlying a store error, or EIO.
func storeErrno(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}

// fillLinkAttr presents a store entry as a root-owned symlink whose size
// is the length of its target.
func fillLinkAttr(out *fuse.Attr, entry workspacefs.Entry) {
	out.Mode = syscall.S_IFLNK | 0o777
	out.Nlink = 1
	out.Uid = 0
	out.Gid = 0
	out.Size = uint64(len(entry.Target))
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}
