package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inkpot/weave/internal/document"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_RoundTrip(t *testing.T) {
	c := openTestCache(t)
	figDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(figDir, "fig1.png"), []byte("png-a"), 0o644); err != nil {
		t.Fatal(err)
	}
	put := &document.Result{Output: "2\n", Images: []string{"fig1.png"}}
	if err := c.Put("key1", put, figDir); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Restore into a fresh dir to prove figures come from the cache.
	restoreDir := t.TempDir()
	got, ok := c.Get("key1", restoreDir)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.Output != "2\n" {
		t.Errorf("output mismatch: %q", got.Output)
	}
	if len(got.Images) != 1 || got.Images[0] != "fig1.png" {
		t.Fatalf("image list mismatch: %v", got.Images)
	}
	data, err := os.ReadFile(filepath.Join(restoreDir, "fig1.png"))
	if err != nil {
		t.Fatalf("restored figure missing: %v", err)
	}
	if string(data) != "png-a" {
		t.Errorf("restored figure corrupted: %q", data)
	}
}

func TestCache_Miss(t *testing.T) {
	c := openTestCache(t)
	if _, ok := c.Get("nope", t.TempDir()); ok {
		t.Error("expected a miss for an unknown key")
	}
}

func TestCache_RefusesFailedResults(t *testing.T) {
	c := openTestCache(t)
	err := c.Put("key", &document.Result{Err: "boom"}, t.TempDir())
	if err == nil {
		t.Fatal("failed results must not be cached")
	}
}

func TestCache_Overwrite(t *testing.T) {
	c := openTestCache(t)
	figDir := t.TempDir()

	if err := c.Put("k", &document.Result{Output: "old\n"}, figDir); err != nil {
		t.Fatalf("put old: %v", err)
	}
	if err := c.Put("k", &document.Result{Output: "new\n"}, figDir); err != nil {
		t.Fatalf("put new: %v", err)
	}
	got, ok := c.Get("k", figDir)
	if !ok || got.Output != "new\n" {
		t.Errorf("expected overwritten value, got %+v ok=%v", got, ok)
	}
}
