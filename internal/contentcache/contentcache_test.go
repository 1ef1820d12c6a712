package contentcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rpmvault/rpmvault/internal/hashutil"
)

func TestFindMatchHitsIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bash-5.1.8-6.el9.x86_64.rpm")
	content := []byte("identical-package-bytes")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	c, err := New(0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	c.RegisterFile(path, int64(len(content)))

	digest, err := hashutil.SHA256File(path)
	if err != nil {
		t.Fatalf("hashing fixture: %v", err)
	}

	got, ok := c.FindMatch(int64(len(content)), "sha256", digest)
	if !ok {
		t.Fatal("expected FindMatch to hit")
	}
	if got != path {
		t.Errorf("FindMatch path = %q, want %q", got, path)
	}
}

func TestFindMatchMissesDifferentSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a-1-1.x86_64.rpm")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	c, err := New(0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	c.RegisterFile(path, 3)

	if _, ok := c.FindMatch(999, "sha256", "deadbeef"); ok {
		t.Fatal("expected no match for a size with no candidates")
	}
}

func TestFindMatchMissesWhenDigestDiffers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a-1-1.x86_64.rpm")
	content := []byte("abc")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	c, err := New(0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	c.RegisterFile(path, int64(len(content)))

	if _, ok := c.FindMatch(int64(len(content)), "sha256", "not-the-real-digest"); ok {
		t.Fatal("expected no match for differing digest")
	}
}

func TestDigestMemoInvalidatesOnSizeChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a-1-1.x86_64.rpm")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	c, err := New(0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	c.RegisterFile(path, 3)

	digest3, err := hashutil.SHA256File(path)
	if err != nil {
		t.Fatalf("hashing fixture: %v", err)
	}
	if _, ok := c.FindMatch(3, "sha256", digest3); !ok {
		t.Fatal("expected initial match at size 3")
	}

	// Grow the file on disk without re-registering; the memo under the old
	// size must not be returned for a lookup at the new size.
	if err := os.WriteFile(path, []byte("abcdef"), 0o644); err != nil {
		t.Fatalf("rewriting fixture: %v", err)
	}
	c.RegisterFile(path, 6)

	digest6, err := hashutil.SHA256File(path)
	if err != nil {
		t.Fatalf("hashing grown fixture: %v", err)
	}
	got, ok := c.FindMatch(6, "sha256", digest6)
	if !ok {
		t.Fatal("expected match at new size 6")
	}
	if got != path {
		t.Errorf("FindMatch path = %q, want %q", got, path)
	}
}

func TestIndexDirectoryFindsRPMFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "Packages", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("creating subdir: %v", err)
	}
	path := filepath.Join(sub, "bash-5.1.8-6.el9.x86_64.rpm")
	content := []byte("rpm-bytes")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("writing non-rpm fixture: %v", err)
	}

	c, err := New(0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := c.IndexDirectory(dir); err != nil {
		t.Fatalf("IndexDirectory returned error: %v", err)
	}

	digest, err := hashutil.SHA256File(path)
	if err != nil {
		t.Fatalf("hashing fixture: %v", err)
	}
	got, ok := c.FindMatch(int64(len(content)), "sha256", digest)
	if !ok || got != path {
		t.Errorf("FindMatch after IndexDirectory = (%q, %v), want (%q, true)", got, ok, path)
	}
}

func TestIndexDirectoryMissingRootIsNotError(t *testing.T) {
	c, err := New(0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := c.IndexDirectory(filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Fatalf("IndexDirectory on missing root returned error: %v", err)
	}
}
