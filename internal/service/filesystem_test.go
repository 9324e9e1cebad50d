package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/agentfs/agentfs/internal/pkg/fserrors"
	"github.com/agentfs/agentfs/pkg/database/sqlite"
)

func newTestAgentFS(t *testing.T) (*AgentFS, context.Context) {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap schema: %v", err)
	}

	return NewAgentFS(db, "test-agent", "/agent"), ctx
}

func TestWriteReadRoundTrip(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	content := []byte("hello, world")
	if err := agent.FS.WriteFile(ctx, "/notes.txt", content); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := agent.FS.ReadFile(ctx, "/notes.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("ReadFile = %q, want %q", got, content)
	}
}

func TestWriteEmptyFile(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.WriteFile(ctx, "/empty.txt", nil); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := agent.FS.ReadFile(ctx, "/empty.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got == nil {
		t.Fatal("ReadFile returned nil for an existing empty file")
	}
	if len(got) != 0 {
		t.Errorf("ReadFile = %q, want empty", got)
	}
}

func TestWriteOverwrites(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.WriteFile(ctx, "/f.txt", []byte("first")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	statBefore, err := agent.FS.Stat(ctx, "/f.txt")
	if err != nil || statBefore == nil {
		t.Fatalf("Stat before overwrite: %v, %v", statBefore, err)
	}

	if err := agent.FS.WriteFile(ctx, "/f.txt", []byte("second, longer")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := agent.FS.ReadFile(ctx, "/f.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "second, longer" {
		t.Errorf("ReadFile = %q, want %q", got, "second, longer")
	}

	statAfter, err := agent.FS.Stat(ctx, "/f.txt")
	if err != nil || statAfter == nil {
		t.Fatalf("Stat after overwrite: %v, %v", statAfter, err)
	}
	if statAfter.Ino != statBefore.Ino {
		t.Errorf("overwrite changed inode: %d -> %d", statBefore.Ino, statAfter.Ino)
	}
	if statAfter.Size != int64(len("second, longer")) {
		t.Errorf("Size = %d, want %d", statAfter.Size, len("second, longer"))
	}
}

func TestLargeContentChunking(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	// Spans multiple chunks with a ragged tail.
	content := bytes.Repeat([]byte("x"), 64<<10*2+17)
	if err := agent.FS.WriteFile(ctx, "/big.bin", content); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := agent.FS.ReadFile(ctx, "/big.bin")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("ReadFile returned %d bytes, want %d", len(got), len(content))
	}
}

func TestReadFileMissing(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	got, err := agent.FS.ReadFile(ctx, "/nope.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != nil {
		t.Errorf("ReadFile = %q, want nil for a missing path", got)
	}
}

func TestWriteFileMissingParent(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	err := agent.FS.WriteFile(ctx, "/no/such/dir/f.txt", []byte("x"))
	if !fserrors.Is(err, fserrors.KindDirectoryNotFound) {
		t.Errorf("WriteFile into missing parent = %v, want directory-not-found", err)
	}
}

func TestMkdirAndReadDir(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.Mkdir(ctx, "/docs"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	for _, name := range []string{"b.txt", "a.txt", "c.txt"} {
		if err := agent.FS.WriteFile(ctx, "/docs/"+name, []byte(name)); err != nil {
			t.Fatalf("WriteFile %s: %v", name, err)
		}
	}

	entries, err := agent.FS.ReadDir(ctx, "/docs")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	want := []string{"a.txt", "b.txt", "c.txt"}
	if len(entries) != len(want) {
		t.Fatalf("ReadDir = %v, want %v", entries, want)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %q, want %q (sorted)", i, entries[i], want[i])
		}
	}
}

func TestMkdirExisting(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.Mkdir(ctx, "/d"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	err := agent.FS.Mkdir(ctx, "/d")
	if !fserrors.Is(err, fserrors.KindPathExists) {
		t.Errorf("second Mkdir = %v, want path-exists", err)
	}
}

func TestMkdirNested(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.Mkdir(ctx, "/a"); err != nil {
		t.Fatalf("Mkdir /a: %v", err)
	}
	if err := agent.FS.Mkdir(ctx, "/a/b"); err != nil {
		t.Fatalf("Mkdir /a/b: %v", err)
	}

	err := agent.FS.Mkdir(ctx, "/x/y")
	if !fserrors.Is(err, fserrors.KindDirectoryNotFound) {
		t.Errorf("Mkdir with missing parent = %v, want directory-not-found", err)
	}
}

func TestReadDirMissing(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	entries, err := agent.FS.ReadDir(ctx, "/missing")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if entries != nil {
		t.Errorf("ReadDir = %v, want nil for a missing directory", entries)
	}
}

func TestRemoveFile(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.WriteFile(ctx, "/gone.txt", []byte("x")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := agent.FS.Remove(ctx, "/gone.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	exists, err := agent.FS.Exists(ctx, "/gone.txt")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("file still exists after Remove")
	}
}

func TestRemoveMissing(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	err := agent.FS.Remove(ctx, "/never-was")
	if !fserrors.Is(err, fserrors.KindFileNotFound) {
		t.Errorf("Remove missing = %v, want file-not-found", err)
	}
}

func TestRemoveNonEmptyDirectory(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.Mkdir(ctx, "/d"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := agent.FS.WriteFile(ctx, "/d/f.txt", []byte("x")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	err := agent.FS.Remove(ctx, "/d")
	if !fserrors.Is(err, fserrors.KindInvalidPath) {
		t.Errorf("Remove non-empty dir = %v, want invalid-path", err)
	}

	if err := agent.FS.Remove(ctx, "/d/f.txt"); err != nil {
		t.Fatalf("Remove file: %v", err)
	}
	if err := agent.FS.Remove(ctx, "/d"); err != nil {
		t.Fatalf("Remove emptied dir: %v", err)
	}
}

func TestRootGuards(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.WriteFile(ctx, "/", []byte("x")); !fserrors.Is(err, fserrors.KindInvalidPath) {
		t.Errorf("WriteFile to root = %v, want invalid-path", err)
	}
	if err := agent.FS.Mkdir(ctx, "/"); !fserrors.Is(err, fserrors.KindInvalidPath) {
		t.Errorf("Mkdir root = %v, want invalid-path", err)
	}
	if err := agent.FS.Remove(ctx, "/"); !fserrors.Is(err, fserrors.KindInvalidPath) {
		t.Errorf("Remove root = %v, want invalid-path", err)
	}
	if err := agent.FS.Symlink(ctx, "/x", "/"); !fserrors.Is(err, fserrors.KindInvalidPath) {
		t.Errorf("Symlink at root = %v, want invalid-path", err)
	}

	stats, err := agent.FS.Stat(ctx, "/")
	if err != nil {
		t.Fatalf("Stat root: %v", err)
	}
	if stats == nil || !stats.IsDirectory() {
		t.Errorf("Stat root = %+v, want a directory", stats)
	}
}

func TestInodeNumbersNeverReused(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.WriteFile(ctx, "/first.txt", []byte("1")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	first, err := agent.FS.Stat(ctx, "/first.txt")
	if err != nil || first == nil {
		t.Fatalf("Stat: %v, %v", first, err)
	}

	if err := agent.FS.Remove(ctx, "/first.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if err := agent.FS.WriteFile(ctx, "/second.txt", []byte("2")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	second, err := agent.FS.Stat(ctx, "/second.txt")
	if err != nil || second == nil {
		t.Fatalf("Stat: %v, %v", second, err)
	}

	if second.Ino <= first.Ino {
		t.Errorf("inode reused: first=%d second=%d", first.Ino, second.Ino)
	}
}

func TestSandboxClampsTraversal(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	// Everything lands inside the mount, whatever the caller tries.
	if err := agent.FS.WriteFile(ctx, "/../../../escape.txt", []byte("x")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	exists, err := agent.FS.Exists(ctx, "/escape.txt")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Error("traversal path was not clamped into the sandbox")
	}
}

func TestMountPrefixedPaths(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.WriteFile(ctx, "/agent/a.txt", []byte("via mount")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// The mount-prefixed and bare spellings address the same file.
	got, err := agent.FS.ReadFile(ctx, "/a.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "via mount" {
		t.Errorf("ReadFile = %q, want %q", got, "via mount")
	}
}

func TestSymlinkLifecycle(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.WriteFile(ctx, "/target.txt", []byte("payload")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := agent.FS.Symlink(ctx, "/target.txt", "/link"); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	target, ok, err := agent.FS.ReadLink(ctx, "/link")
	if err != nil || !ok {
		t.Fatalf("ReadLink: ok=%v err=%v", ok, err)
	}
	if target != "/target.txt" {
		t.Errorf("ReadLink = %q, want %q", target, "/target.txt")
	}

	// Stat follows the link, Lstat does not.
	stats, err := agent.FS.Stat(ctx, "/link")
	if err != nil || stats == nil {
		t.Fatalf("Stat: %v, %v", stats, err)
	}
	if !stats.IsFile() {
		t.Errorf("Stat mode = %o, want a regular file", stats.Mode)
	}

	lstats, err := agent.FS.Lstat(ctx, "/link")
	if err != nil || lstats == nil {
		t.Fatalf("Lstat: %v, %v", lstats, err)
	}
	if !lstats.IsSymlink() {
		t.Errorf("Lstat mode = %o, want a symlink", lstats.Mode)
	}

	// Reads follow the link too.
	got, err := agent.FS.ReadFile(ctx, "/link")
	if err != nil {
		t.Fatalf("ReadFile via link: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("ReadFile via link = %q, want %q", got, "payload")
	}
}

func TestSymlinkRelativeTarget(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.Mkdir(ctx, "/d"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := agent.FS.WriteFile(ctx, "/d/real.txt", []byte("rel")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := agent.FS.Symlink(ctx, "real.txt", "/d/alias"); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	got, err := agent.FS.ReadFile(ctx, "/d/alias")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "rel" {
		t.Errorf("ReadFile via relative link = %q, want %q", got, "rel")
	}
}

func TestDanglingSymlink(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.Symlink(ctx, "/nowhere", "/dangling"); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	// The link itself exists even though its target does not resolve.
	exists, err := agent.FS.Exists(ctx, "/dangling")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Error("dangling symlink should exist")
	}

	got, err := agent.FS.ReadFile(ctx, "/dangling")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != nil {
		t.Errorf("ReadFile through dangling link = %q, want nil", got)
	}

	stats, err := agent.FS.Stat(ctx, "/dangling")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if stats != nil {
		t.Errorf("Stat through dangling link = %+v, want nil", stats)
	}
}

func TestSymlinkCycle(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.Symlink(ctx, "/b", "/a"); err != nil {
		t.Fatalf("Symlink a: %v", err)
	}
	if err := agent.FS.Symlink(ctx, "/a", "/b"); err != nil {
		t.Fatalf("Symlink b: %v", err)
	}

	_, err := agent.FS.ReadFile(ctx, "/a")
	if !fserrors.Is(err, fserrors.KindInvalidPath) {
		t.Errorf("ReadFile through cycle = %v, want invalid-path", err)
	}
}

func TestSymlinkChainDepthBound(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.WriteFile(ctx, "/end.txt", []byte("deep")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// link0 -> end.txt, linkN -> linkN-1, so reading linkN follows N+1
	// symlinks. Exactly 40 hops resolve; the 41st exceeds the bound.
	if err := agent.FS.Symlink(ctx, "/end.txt", "/link0"); err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	for i := 1; i <= 41; i++ {
		from := fmt.Sprintf("/link%d", i)
		to := fmt.Sprintf("/link%d", i-1)
		if err := agent.FS.Symlink(ctx, to, from); err != nil {
			t.Fatalf("Symlink %s: %v", from, err)
		}
	}

	got, err := agent.FS.ReadFile(ctx, "/link39")
	if err != nil {
		t.Fatalf("ReadFile through 40 hops: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("ReadFile = %q, want %q", got, "deep")
	}

	_, err = agent.FS.ReadFile(ctx, "/link40")
	if !fserrors.Is(err, fserrors.KindInvalidPath) {
		t.Errorf("ReadFile through 41 hops = %v, want invalid-path", err)
	}

	_, err = agent.FS.ReadFile(ctx, "/link41")
	if !fserrors.Is(err, fserrors.KindInvalidPath) {
		t.Errorf("ReadFile through 42 hops = %v, want invalid-path", err)
	}
}

func TestReadLinkOnRegularFile(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.WriteFile(ctx, "/plain.txt", []byte("x")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, _, err := agent.FS.ReadLink(ctx, "/plain.txt")
	if !fserrors.Is(err, fserrors.KindInvalidPath) {
		t.Errorf("ReadLink on a regular file = %v, want invalid-path", err)
	}
}

func TestRemoveSymlinkLeavesTarget(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.WriteFile(ctx, "/kept.txt", []byte("keep me")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := agent.FS.Symlink(ctx, "/kept.txt", "/alias"); err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	if err := agent.FS.Remove(ctx, "/alias"); err != nil {
		t.Fatalf("Remove symlink: %v", err)
	}

	got, err := agent.FS.ReadFile(ctx, "/kept.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "keep me" {
		t.Errorf("target damaged by symlink removal: %q", got)
	}
}

func TestWorkspaceScenario(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if err := agent.FS.Mkdir(ctx, "/a"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := agent.FS.WriteFile(ctx, "/a/f.txt", []byte("hi")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := agent.FS.ReadDir(ctx, "/a")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0] != "f.txt" {
		t.Errorf("ReadDir = %v, want [f.txt]", entries)
	}

	stats, err := agent.FS.Stat(ctx, "/a/f.txt")
	if err != nil || stats == nil {
		t.Fatalf("Stat: %v, %v", stats, err)
	}
	if stats.Size != 2 {
		t.Errorf("Size = %d, want 2", stats.Size)
	}

	if err := agent.FS.Remove(ctx, "/a/f.txt"); err != nil {
		t.Fatalf("Remove file: %v", err)
	}
	if err := agent.FS.Remove(ctx, "/a"); err != nil {
		t.Fatalf("Remove dir: %v", err)
	}

	exists, err := agent.FS.Exists(ctx, "/a")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("directory still exists after removal")
	}
}
