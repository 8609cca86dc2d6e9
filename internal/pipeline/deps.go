package pipeline

import (
	"os"
	"path/filepath"
)

// fileSystem abstracts the writes and deletes a run performs.
type fileSystem interface {
	MkdirAll(path string, perm os.FileMode) error
	WriteFileAtomic(path string, data []byte) error
	Remove(name string) error
}

var _ fileSystem = osFileSystem{}

// osFileSystem implements fileSystem on the local disk.
type osFileSystem struct{}

func (osFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (osFileSystem) Remove(name string) error {
	return os.Remove(name)
}

// WriteFileAtomic writes data to a temp file in the destination directory,
// then renames it over path. Readers never observe a partial file.
func (osFileSystem) WriteFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name()) // best-effort cleanup on failure
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
