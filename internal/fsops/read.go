package fsops

import (
	"fmt"
	"io"
	"os"

	"github.com/petasbytes/snapbooks/internal/safety"
)

// MaxReadBytes bounds a single ReadFile.
const MaxReadBytes = 1 << 20

// ReadFile returns the content of relPath under the read root. Policy
// violations, directories and oversized files are ToolErrors.
func ReadFile(relPath string) (string, error) {
	sb, err := get()
	if err != nil {
		return "", err
	}
	absPath, err := sb.policy.Read(sb.readRoot, relPath)
	if err != nil {
		return "", err
	}

	f, err := os.Open(absPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", safety.ToolError{Code: safety.CodeNotAFile, Message: "path is a directory"}
	}
	if fi.Size() > MaxReadBytes {
		return "", safety.ToolError{Code: safety.CodeTooLarge, Message: fmt.Sprintf("file exceeds %d bytes", MaxReadBytes)}
	}
	b, err := io.ReadAll(io.LimitReader(f, MaxReadBytes+1))
	if err != nil {
		return "", err
	}
	if len(b) > MaxReadBytes {
		return "", safety.ToolError{Code: safety.CodeTooLarge, Message: fmt.Sprintf("file exceeds %d bytes", MaxReadBytes)}
	}
	return string(b), nil
}
