// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"os/exec"
	"testing"
)

// RequireFUSE skips the test unless a FUSE mount can be made: the device
// must exist and, for non-root users, fusermount must be installed.
func RequireFUSE(t testing.TB) {
	t.Helper()
	if _, err := os.Stat("/dev/fuse"); err != nil {
		t.Skip("skipping: /dev/fuse not available")
	}
	if os.Getuid() == 0 {
		return
	}
	for _, helper := range []string{"fusermount3", "fusermount"} {
		if _, err := exec.LookPath(helper); err == nil {
			return
		}
	}
	t.Skip("skipping: fusermount not installed")
}

// WriteMode writes content to path and sets mode on it, including
// special bits that os.WriteFile ignores. If mode carries the setuid bit
// and the filesystem drops it, the test is skipped.
//
//	script := testutil.WriteMode(t, path, "#!/opt/pwn.college/python\n", os.ModeSetuid|0o755)
func WriteMode(t testing.TB, path, content string, mode os.FileMode) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	Chmod(t, path, mode)
	return path
}

// Chmod sets mode on an existing path. If mode carries the setuid bit
// and the filesystem drops it, the test is skipped.
func Chmod(t testing.TB, path string, mode os.FileMode) {
	t.Helper()
	if err := os.Chmod(path, mode); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	if mode&os.ModeSetuid != 0 {
		RequireSetuid(t, path)
	}
}

// RequireSetuid skips the test unless path carries the setuid bit.
func RequireSetuid(t testing.TB, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode()&os.ModeSetuid == 0 {
		t.Skip("skipping: filesystem does not retain the setuid bit")
	}
}
