package fsops

import (
	"os"
	"path/filepath"
)

// WriteFile writes content to relPath under the write root.
func WriteFile(relPath, content string) error {
	return WriteBytes(relPath, []byte(content))
}

// WriteBytes is WriteFile for binary content. Parent directories are
// created and the file is replaced atomically.
func WriteBytes(relPath string, content []byte) error {
	sb, err := get()
	if err != nil {
		return err
	}
	absPath, err := sb.policy.Write(sb.writeRoot, relPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), absPath)
}
