package service

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"root", "/", "/"},
		{"empty", "", "/"},
		{"simple", "/a/b", "/a/b"},
		{"no leading slash", "a/b", "/a/b"},
		{"trailing slash", "/a/b/", "/a/b"},
		{"double slashes", "/a//b", "/a/b"},
		{"dot segments", "/a/./b/.", "/a/b"},
		{"mixed", "/a//b/./c/../d", "/a/b/d"},
		{"dotdot pops", "/a/b/..", "/a"},
		{"dotdot at root", "/..", "/"},
		{"dotdot underflow", "/../../../etc/passwd", "/etc/passwd"},
		{"only dots", "/././.", "/"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizePath(tc.in)
			if got != tc.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizePathIdempotent(t *testing.T) {
	inputs := []string{"/", "", "/a//b/./c/../d", "../x/./y", "/a/b/c/"}

	for _, in := range inputs {
		once := normalizePath(in)
		twice := normalizePath(once)
		if once != twice {
			t.Errorf("normalizePath not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSandboxPath(t *testing.T) {
	cases := []struct {
		name  string
		mount string
		raw   string
		want  string
	}{
		{"mount prefix stripped", "/agent", "/agent/notes/a.txt", "/notes/a.txt"},
		{"mount itself", "/agent", "/agent", "/"},
		{"absolute treated as relative", "/agent", "/notes/a.txt", "/notes/a.txt"},
		{"relative", "/agent", "notes/a.txt", "/notes/a.txt"},
		{"traversal clamped", "/agent", "/agent/../../etc/passwd", "/etc/passwd"},
		{"deep traversal clamped", "/agent", "../../../../etc/passwd", "/etc/passwd"},
		{"mount with trailing slash", "/agent/", "/agent/a", "/a"},
		{"empty raw", "/agent", "", "/"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sandboxPath(tc.mount, tc.raw)
			if got != tc.want {
				t.Errorf("sandboxPath(%q, %q) = %q, want %q", tc.mount, tc.raw, got, tc.want)
			}
		})
	}
}

func TestSplitPath(t *testing.T) {
	if got := splitPath("/"); got != nil {
		t.Errorf("splitPath(\"/\") = %v, want nil", got)
	}

	got := splitPath("/a/b/c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitPath(\"/a/b/c\") = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParentPath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"/", "/"},
		{"/a", "/"},
		{"/a/b", "/a"},
		{"/a/b/c", "/a/b"},
	}

	for _, tc := range cases {
		if got := parentPath(tc.in); got != tc.want {
			t.Errorf("parentPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestJoinPath(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		target string
		want   string
	}{
		{"absolute target", "/a/link", "/b/c", "/b/c"},
		{"relative sibling", "/a/link", "file.txt", "/a/file.txt"},
		{"relative up", "/a/b/link", "../c", "/a/c"},
		{"relative up past root", "/a/link", "../../../x", "/x"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := joinPath(tc.path, tc.target); got != tc.want {
				t.Errorf("joinPath(%q, %q) = %q, want %q", tc.path, tc.target, got, tc.want)
			}
		})
	}
}
