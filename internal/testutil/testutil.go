// Package testutil provides common test helpers for the direnv-instant project.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hbjs97/direnv-instant/internal/watch"
)

// TempConfigFile creates a temporary config.toml with the given content
// and returns its path. The file is automatically cleaned up.
func TempConfigFile(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("TempConfigFile: write failed: %v", err)
	}

	return path
}

// TempEnvrc creates a temporary project directory containing an .envrc with
// the given body and returns the directory.
func TempEnvrc(t *testing.T, body string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".envrc"), []byte(body), 0600); err != nil {
		t.Fatalf("TempEnvrc: write failed: %v", err)
	}

	return dir
}

// StateDir creates a private (0700) state directory for result files.
func StateDir(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "state")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("StateDir: mkdir failed: %v", err)
	}

	return dir
}

// ReadFile reads the file at path, failing the test on error.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: read failed: %v", err)
	}

	return string(data)
}

// WriteFile writes content to path with 0600 permissions, failing the test on error.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: write failed: %v", err)
	}
}

// DirenvJSON renders a `direnv export json` payload. A nil value marks an unset.
func DirenvJSON(t *testing.T, vars map[string]*string) string {
	t.Helper()

	data, err := json.Marshal(vars)
	if err != nil {
		t.Fatalf("DirenvJSON: marshal failed: %v", err)
	}

	return string(data)
}

// DirenvState returns the bookkeeping variables direnv leaves in the shell
// right after loading rc: DIRENV_DIR, DIRENV_FILE and DIRENV_WATCHES.
func DirenvState(t *testing.T, rc string) map[string]string {
	t.Helper()

	info, err := os.Stat(rc)
	if err != nil {
		t.Fatalf("DirenvState: stat failed: %v", err)
	}
	watches, err := watch.Encode([]watch.FileTime{{Path: rc, Modtime: info.ModTime().Unix(), Exists: true}})
	if err != nil {
		t.Fatalf("DirenvState: encode failed: %v", err)
	}

	return map[string]string{
		watch.DirVar:     "-" + filepath.Dir(rc),
		watch.FileVar:    rc,
		watch.WatchesVar: watches,
	}
}

// Ptr returns a pointer to s.
func Ptr(s string) *string { return &s }
