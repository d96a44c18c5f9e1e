package toolbox

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestFiles(t *testing.T) *Files {
	t.Helper()
	f, err := NewFiles(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestFilesRoundTrip(t *testing.T) {
	f := newTestFiles(t)

	if got := f.Write("notes.txt", "hello", false); got["ok"] != true {
		t.Fatalf("write failed: %v", got)
	}
	got := f.Read("notes.txt")
	if got["ok"] != true || got["content"] != "hello" {
		t.Fatalf("read = %v, want hello", got)
	}
}

func TestFilesReadMissing(t *testing.T) {
	got := newTestFiles(t).Read("nope.txt")
	if got["ok"] != false || got["error"] != "not_found" {
		t.Fatalf("got %v, want not_found", got)
	}
	if got["content"] != "" {
		t.Fatalf("content should be empty on failure, got %v", got["content"])
	}
}

func TestFilesRejectsEscapes(t *testing.T) {
	f := newTestFiles(t)

	outside := filepath.Join(os.TempDir(), "opsagent-escape.txt")
	for _, path := range []string{
		"../escape.txt",
		"a/../../escape.txt",
		outside,
	} {
		if got := f.Read(path); got["error"] != "permission_denied" {
			t.Errorf("Read(%q) = %v, want permission_denied", path, got)
		}
		if got := f.Write(path, "x", false); got["error"] != "permission_denied" {
			t.Errorf("Write(%q) = %v, want permission_denied", path, got)
		}
	}
	if _, err := os.Stat(outside); err == nil {
		t.Fatal("file was written outside the project root")
	}
}

func TestFilesDotDotWithinRootAllowed(t *testing.T) {
	f := newTestFiles(t)
	if got := f.Write("sub/../inside.txt", "ok", true); got["ok"] != true {
		t.Fatalf("write failed: %v", got)
	}
	if got := f.Read("inside.txt"); got["content"] != "ok" {
		t.Fatalf("read = %v", got)
	}
}

func TestFilesWriteCreatesDirectories(t *testing.T) {
	f := newTestFiles(t)
	if got := f.Write("deep/nested/file.txt", "x", true); got["ok"] != true {
		t.Fatalf("write failed: %v", got)
	}
	if got := f.Read("deep/nested/file.txt"); got["content"] != "x" {
		t.Fatalf("read = %v", got)
	}
}
