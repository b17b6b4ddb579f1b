package safety

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// Policy decides which workspace paths tools may read and write. Paths are
// matched in slash form relative to the root.
type Policy struct {
	// DeniedDirs blocks the directory and everything under it.
	DeniedDirs []string
	// DeniedNames are path.Match patterns tested against the base name.
	DeniedNames []string
	// WriteExts lists the extensions a write may create; empty allows any.
	WriteExts []string
}

// DefaultPolicy keeps tools to invoice documents: no VCS metadata, event
// logs, databases, session indexes or configuration.
func DefaultPolicy() Policy {
	return Policy{
		DeniedDirs:  []string{".git", ".agent"},
		DeniedNames: []string{"*.db", "*.db-wal", "*.db-shm", "sessions.json", "config.yaml", ".env", "go.mod", "go.sum"},
		WriteExts:   []string{".html", ".md"},
	}
}

// ResolveRoots returns absolute, symlink-resolved read and write roots. An
// empty readRoot is the working directory; an empty writeRoot is readRoot.
func ResolveRoots(readRoot, writeRoot string) (string, string, error) {
	if readRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", "", fmt.Errorf("getwd: %w", err)
		}
		readRoot = cwd
	}
	if writeRoot == "" {
		writeRoot = readRoot
	}
	r, err := absResolved(readRoot)
	if err != nil {
		return "", "", fmt.Errorf("read root: %w", err)
	}
	w, err := absResolved(writeRoot)
	if err != nil {
		return "", "", fmt.Errorf("write root: %w", err)
	}
	return r, w, nil
}

// absResolved falls back to the plain absolute path for a root that does
// not exist yet.
func absResolved(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		return r, nil
	}
	return abs, nil
}

// Read returns the absolute path for reading relPath under absRoot.
func (p Policy) Read(absRoot, relPath string) (string, error) {
	abs, rel, err := resolveInRoot(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if reason := p.denied(rel); reason != "" {
		return "", ToolError{Code: CodeDeniedRead, Message: "cannot read " + reason}
	}
	return abs, nil
}

// Write returns the absolute path for writing relPath under absRoot.
func (p Policy) Write(absRoot, relPath string) (string, error) {
	abs, rel, err := resolveInRoot(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if reason := p.denied(rel); reason != "" {
		return "", ToolError{Code: CodeDeniedWrite, Message: "cannot write " + reason}
	}
	if ext := strings.ToLower(path.Ext(rel)); len(p.WriteExts) > 0 && !slices.Contains(p.WriteExts, ext) {
		return "", ToolError{Code: CodeDeniedWrite, Message: fmt.Sprintf("cannot write %s files (allowed: %s)", extLabel(ext), strings.Join(p.WriteExts, ", "))}
	}
	return abs, nil
}

func extLabel(ext string) string {
	if ext == "" {
		return "extensionless"
	}
	return ext
}

// denied returns why rel is off limits, or "".
func (p Policy) denied(rel string) string {
	for _, dir := range p.DeniedDirs {
		if rel == dir || strings.HasPrefix(rel, dir+"/") {
			return "under " + dir + "/"
		}
	}
	base := path.Base(rel)
	for _, pattern := range p.DeniedNames {
		if ok, _ := path.Match(pattern, base); ok {
			return base
		}
	}
	return ""
}

// resolveInRoot returns the symlink-resolved absolute candidate and its
// slash-separated form relative to absRoot.
func resolveInRoot(absRoot, relPath string) (string, string, error) {
	if filepath.IsAbs(relPath) {
		return "", "", ToolError{Code: CodeOutsideSandbox, Message: "absolute paths are not allowed"}
	}
	candidate := filepath.Join(absRoot, filepath.Clean(relPath))

	// A missing leaf resolves through its parent so a symlinked directory
	// cannot smuggle a new file outside the root.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else if parent, err := filepath.EvalSymlinks(filepath.Dir(candidate)); err == nil {
		candidate = filepath.Join(parent, filepath.Base(candidate))
	}

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", "", ToolError{Code: CodeOutsideSandbox, Message: "path resolves outside the workspace"}
	}
	return candidate, filepath.ToSlash(rel), nil
}
