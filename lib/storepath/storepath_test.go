// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storepath

import "testing"

func TestRedirect(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"mount entry", "/run/workspace/bin/py", "/run/dojo/bin/py"},
		{"nested remainder", "/run/workspace/bin/sub/tool", "/run/dojo/bin/sub/tool"},
		{"remainder not cleaned", "/run/workspace/bin/../x", "/run/dojo/bin/../x"},
		{"mount directory itself", "/run/workspace/bin", "/run/workspace/bin"},
		{"sibling prefix", "/run/workspace/binary/py", "/run/workspace/binary/py"},
		{"unrelated path", "/challenge/run", "/challenge/run"},
		{"relative path", "run/workspace/bin/py", "run/workspace/bin/py"},
		{"empty", "", ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Redirect(test.input); got != test.want {
				t.Errorf("Redirect(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestRedirectToTrailingSlashStore(t *testing.T) {
	got := RedirectTo("/mnt/ws/tool", "/mnt/ws/", "/store/")
	if got != "/store/tool" {
		t.Errorf("RedirectTo = %q, want /store/tool", got)
	}
}

func TestTarget(t *testing.T) {
	if got := Target(StoreRoot, "py"); got != "/run/dojo/bin/py" {
		t.Errorf("Target = %q, want /run/dojo/bin/py", got)
	}
}
