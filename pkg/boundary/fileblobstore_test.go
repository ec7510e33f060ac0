package boundary

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileBlobStoreResolvesWithinRoot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "track.wav"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewFileBlobStore(dir)
	path, err := store.Resolve(context.Background(), "track.wav")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if path != filepath.Join(dir, "track.wav") {
		t.Errorf("path = %q, want %q", path, filepath.Join(dir, "track.wav"))
	}
}

func TestFileBlobStoreRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	store := NewFileBlobStore(dir)
	if _, err := store.Resolve(context.Background(), "../../etc/passwd"); err == nil {
		t.Fatal("expected escape to be rejected")
	}
}

func TestFileBlobStoreRejectsAbsolute(t *testing.T) {
	store := NewFileBlobStore(t.TempDir())
	if _, err := store.Resolve(context.Background(), "/etc/passwd"); err == nil {
		t.Fatal("expected absolute ref to be rejected")
	}
}

func TestFileBlobStoreMissingFile(t *testing.T) {
	store := NewFileBlobStore(t.TempDir())
	if _, err := store.Resolve(context.Background(), "nope.wav"); err == nil {
		t.Fatal("expected missing file to error")
	}
}
