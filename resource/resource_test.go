package resource

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewResolverAtDefaultsToShareSubdir(t *testing.T) {
	dir := t.TempDir()
	r := NewResolverAt(dir)
	if r.Root() != filepath.Join(dir, "share") {
		t.Fatalf("expected default root to be <dir>/share, got %q", r.Root())
	}
}

func TestNewResolverAtHonoursRedirect(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "alt-data")
	if err := os.WriteFile(filepath.Join(dir, "share.path"), []byte(target+"\n"), 0644); err != nil {
		t.Fatalf("failed to write redirect file: %v", err)
	}
	r := NewResolverAt(dir)
	if r.Root() != target {
		t.Fatalf("expected redirected root %q, got %q", target, r.Root())
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	r := NewResolverAt(dir)
	if err := os.MkdirAll(r.Root(), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(r.Path("signatures.db"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !r.Exists("signatures.db") {
		t.Fatalf("expected signatures.db to be found")
	}
	if r.Exists("missing.db") {
		t.Fatalf("did not expect missing.db to be found")
	}
}
