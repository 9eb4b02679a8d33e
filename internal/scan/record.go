package scan

import (
	"path/filepath"
	"strings"
)

// NoExtension is the extension reported for files without one.
const NoExtension = "(no-ext)"

// FileRecord describes one regular file found during a scan.
type FileRecord struct {
	// Path is the absolute path of the file. For files reached through a
	// followed symbolic link it is the resolved real path.
	Path string `json:"path" yaml:"path"`
	// Size is the size in bytes at the time the file was stat'ed.
	Size int64 `json:"size" yaml:"size"`
	// Extension is the lowercased extension including the leading dot, or NoExtension.
	Extension string `json:"extension" yaml:"extension"`
}

// newRecord creates a record from a path and its size.
func newRecord(path string, size int64) FileRecord {
	return FileRecord{
		Path:      path,
		Size:      size,
		Extension: Extension(path),
	}
}

// Extension returns the lowercased text after the last dot of the base name of path,
// prefixed with a dot. Names without a dot, names whose only dot is the leading one
// (".gitignore") and names ending in a dot yield NoExtension.
// Dots in parent directory names are not considered.
func Extension(path string) string {
	name := filepath.Base(path)

	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return NoExtension
	}

	return "." + strings.ToLower(name[i+1:])
}
