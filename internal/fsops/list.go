package fsops

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListFiles returns the regular files in relDir whose extension is ext
// (any extension when ext is empty), sorted by name. Subdirectories are
// skipped and a missing directory lists as empty.
func ListFiles(relDir, ext string) ([]string, error) {
	sb, err := get()
	if err != nil {
		return nil, err
	}
	if relDir == "" {
		relDir = "."
	}
	absDir, err := sb.policy.Read(sb.readRoot, relDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
