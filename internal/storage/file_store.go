package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// fileStore keeps the URL as the sole content of a text file.
type fileStore struct {
	path string
}

// openFile prepares a file-backed Store. The file itself is created on first write.
func openFile(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	return &fileStore{path: path}, nil
}

func (f *fileStore) Close() error { return nil }

// LastSeen reads the stored URL. A missing or blank file means no baseline.
func (f *fileStore) LastSeen() (string, bool, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ioError(TypeFile, "read", err)
	}
	url := strings.TrimSpace(string(raw))
	if url == "" {
		return "", false, nil
	}
	return url, true, nil
}

// SaveLastSeen writes to a temp file in the same directory, syncs it and renames
// it over the target so a crash never leaves a partial URL behind.
func (f *fileStore) SaveLastSeen(url string) error {
	url, err := cleanURL(url)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return ioError(TypeFile, "write", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.WriteString(url); err != nil {
		_ = tmp.Close()
		cleanup()
		return ioError(TypeFile, "write", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return ioError(TypeFile, "write", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return ioError(TypeFile, "write", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return ioError(TypeFile, "write", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return ioError(TypeFile, "write", err)
	}
	return nil
}
