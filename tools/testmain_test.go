package tools_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/petasbytes/snapbooks/internal/fsops"
)

var sharedDir string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "tools-tests-")
	if err != nil {
		panic(err)
	}
	_ = os.Setenv("AGT_READ_ROOT", dir)
	_ = os.Setenv("AGT_WRITE_ROOT", dir)
	sharedDir = dir

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// workspace points the sandbox at a fresh per-test root with an invoices dir.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if r, err := filepath.EvalSymlinks(dir); err == nil {
		dir = r
	}
	if err := os.MkdirAll(filepath.Join(dir, "invoices"), 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := fsops.Configure(dir, dir); err != nil {
		t.Fatalf("configure sandbox: %v", err)
	}
	t.Cleanup(func() { _ = fsops.Configure(sharedDir, sharedDir) })
	return dir
}

func writeInvoice(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "invoices", name), []byte(body), 0o644); err != nil {
		t.Fatalf("prepare: %v", err)
	}
}
