// Package fsio holds the file primitives the cross-process stores are built
// on: atomic whole-file replacement and stat-based change detection. The two
// cooperating processes never share a lock; a reader only ever observes a
// fully written file or the previous one.
package fsio

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// WriteFileAtomic writes data to a temp file in the target's directory and
// renames it over path. Rename is atomic on POSIX filesystems, so the other
// process never reads a half-written store.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// ModTime returns the file's modification time, or the zero time when the
// file does not exist. Other stat errors are returned as-is.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Identity distinguishes one on-disk file from its replacement after
// rotation. Device and inode are used where the platform exposes them;
// callers should combine this with a size check as a fallback.
type Identity struct {
	Dev uint64
	Ino uint64
	OK  bool
}

// FileIdentity extracts the identity from a stat result.
func FileIdentity(info os.FileInfo) Identity {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return Identity{Dev: uint64(st.Dev), Ino: st.Ino, OK: true}
	}
	return Identity{}
}
