package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jewel-tree/profile-post-watcher/internal/storage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionNotEmpty(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestExecuteVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.HasPrefix(out, "watcher dev") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestStateCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "last_post.txt")
	t.Setenv("STORAGE_TYPE", storage.TypeFile)
	t.Setenv("STORAGE_PATH", path)
	envFile := filepath.Join(dir, "absent.env")

	out, err := execute(t, "state", "--env-file", envFile)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if strings.TrimSpace(out) != "no post recorded yet" {
		t.Fatalf("unexpected output %q", out)
	}

	if err := os.WriteFile(path, []byte("https://www.instagram.com/p/ABC/"), 0o644); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	out, err = execute(t, "state", "--env-file", envFile)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if strings.TrimSpace(out) != "https://www.instagram.com/p/ABC/" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestStateCommandRejectsBadConfig(t *testing.T) {
	t.Setenv("FETCH_STRATEGY", "carrier_pigeon")
	if _, err := execute(t, "state", "--env-file", filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Fatalf("expected config error")
	}
}
