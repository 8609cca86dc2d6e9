package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// fileLocker locks inputs through lock files in dir. The video itself is
// never opened, so ffmpeg can read it while the lock is held.
type fileLocker struct {
	dir string
}

func newFileLocker(dir string) *fileLocker {
	return &fileLocker{dir: dir}
}

// lockPath names the lock file after a digest of the absolute input path.
func (l *fileLocker) lockPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(l.dir, "go-captions-"+hex.EncodeToString(sum[:8])+".lock"), nil
}

// Lock takes the lock for path or fails with ErrInputBusy.
func (l *fileLocker) Lock(path string) (func() error, error) {
	lp, err := l.lockPath(path)
	if err != nil {
		return nil, err
	}

	fl := flock.New(lp)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInputBusy, path)
	}
	return fl.Unlock, nil
}
