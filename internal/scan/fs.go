package scan

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FS is the set of filesystem operations the engine depends on.
type FS interface {
	// ReadDir lists the entries of a directory without following symbolic links.
	ReadDir(name string) ([]fs.DirEntry, error)
	// Lstat describes name without following a final symbolic link.
	Lstat(name string) (fs.FileInfo, error)
	// Stat describes the final target of name.
	Stat(name string) (fs.FileInfo, error)
	// RealPath returns the absolute path of name with every symbolic link resolved.
	RealPath(name string) (string, error)
}

// osFS implements FS on top of the host operating system.
type osFS struct{}

// OS returns an FS backed by the host operating system.
// Directory entries are returned sorted by name.
func OS() FS {
	return osFS{}
}

func (osFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

func (osFS) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(name)
}

func (osFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (osFS) RealPath(name string) (string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", err
	}

	return filepath.EvalSymlinks(abs)
}
