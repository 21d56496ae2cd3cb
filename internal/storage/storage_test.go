package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openEach(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	stores := map[string]Store{}
	for typ, name := range map[string]string{
		TypeFile:   "state/last_post.txt",
		TypeBBolt:  "state/cache.db",
		TypeSQLite: "state/state.sqlite",
		TypeMemory: "",
	} {
		s, err := NewStore(typ, filepath.Join(dir, typ, name), Options{})
		if err != nil {
			t.Fatalf("NewStore(%s): %v", typ, err)
		}
		t.Cleanup(func() { _ = s.Close() })
		stores[typ] = s
	}
	return stores
}

func TestStoresStartEmptyAndOverwrite(t *testing.T) {
	for typ, store := range openEach(t) {
		t.Run(typ, func(t *testing.T) {
			url, ok, err := store.LastSeen()
			if err != nil || ok || url != "" {
				t.Fatalf("expected empty slot, got url=%q ok=%v err=%v", url, ok, err)
			}

			if err := store.SaveLastSeen("https://x/p/ABC/"); err != nil {
				t.Fatalf("SaveLastSeen: %v", err)
			}
			if err := store.SaveLastSeen("https://x/p/XYZ/"); err != nil {
				t.Fatalf("SaveLastSeen overwrite: %v", err)
			}

			url, ok, err = store.LastSeen()
			if err != nil || !ok || url != "https://x/p/XYZ/" {
				t.Fatalf("expected overwritten value, got url=%q ok=%v err=%v", url, ok, err)
			}
		})
	}
}

func TestStoresRejectEmptyURL(t *testing.T) {
	for typ, store := range openEach(t) {
		t.Run(typ, func(t *testing.T) {
			if err := store.SaveLastSeen("https://x/p/ABC/"); err != nil {
				t.Fatalf("SaveLastSeen: %v", err)
			}
			if err := store.SaveLastSeen("   "); !errors.Is(err, ErrEmptyURL) {
				t.Fatalf("expected ErrEmptyURL, got %v", err)
			}
			url, _, _ := store.LastSeen()
			if url != "https://x/p/ABC/" {
				t.Fatalf("previous value must survive a rejected write, got %q", url)
			}
		})
	}
}

func TestPersistentStoresSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	for _, typ := range []string{TypeFile, TypeBBolt, TypeSQLite} {
		t.Run(typ, func(t *testing.T) {
			path := filepath.Join(dir, typ+".state")
			first, err := NewStore(typ, path, Options{Slot: "profile"})
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			if err := first.SaveLastSeen("https://x/p/ABC/"); err != nil {
				t.Fatalf("SaveLastSeen: %v", err)
			}
			if err := first.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			second, err := NewStore(typ, path, Options{Slot: "profile"})
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer second.Close()
			url, ok, err := second.LastSeen()
			if err != nil || !ok || url != "https://x/p/ABC/" {
				t.Fatalf("expected persisted value, got url=%q ok=%v err=%v", url, ok, err)
			}
		})
	}
}

func TestFileStoreWritesOnlyTheURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_post.txt")
	store, err := NewStore(TypeFile, path, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.SaveLastSeen(" https://x/p/ABC/ \n"); err != nil {
		t.Fatalf("SaveLastSeen: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	if string(raw) != "https://x/p/ABC/" {
		t.Fatalf("unexpected file content %q", raw)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be renamed away, found %d entries", len(entries))
	}
}

func TestFileStoreTreatsBlankFileAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_post.txt")
	if err := os.WriteFile(path, []byte("\n  \n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	store, err := NewStore(TypeFile, path, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, ok, err := store.LastSeen(); ok || err != nil {
		t.Fatalf("expected absent baseline, ok=%v err=%v", ok, err)
	}
}

func TestFileStoreReportsIOErrors(t *testing.T) {
	dir := t.TempDir()
	// A directory at the state path cannot be read as a file.
	path := filepath.Join(dir, "last_post.txt")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	store, err := NewStore(TypeFile, path, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	_, _, err = store.LastSeen()
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || storeErr.Op != "read" || storeErr.Kind() != "io" {
		t.Fatalf("expected read StoreError, got %v", err)
	}
	if err := store.SaveLastSeen("https://x/p/ABC/"); !errors.As(err, &storeErr) {
		t.Fatalf("expected write StoreError, got %v", err)
	}
}

func TestNewStoreRejectsUnknownTypeAndMissingPath(t *testing.T) {
	if _, err := NewStore("redis", "x", Options{}); err == nil {
		t.Fatalf("expected unsupported type error")
	}
	for _, typ := range []string{TypeFile, TypeBBolt, TypeSQLite} {
		if _, err := NewStore(typ, " ", Options{}); err == nil {
			t.Fatalf("expected missing path error for %s", typ)
		}
	}
}
