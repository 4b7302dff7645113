// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteMode(t *testing.T) {
	path := WriteMode(t, filepath.Join(t.TempDir(), "plain"), "content", 0o640)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("perm = %v, want 0640", info.Mode().Perm())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(content) != "content" {
		t.Errorf("content = %q", content)
	}
}

func TestWriteModeSetuid(t *testing.T) {
	path := WriteMode(t, filepath.Join(t.TempDir(), "setuid"), "", os.ModeSetuid|0o755)

	// Reaching this point means the bit was retained.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode()&os.ModeSetuid == 0 {
		t.Error("setuid bit missing after WriteMode returned")
	}
}
