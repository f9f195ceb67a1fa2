// Package fileutil holds the small filesystem helpers shared by the egs,
// priors and retention packages.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyFile streams src to dst, creating dst's directory and keeping src's
// permission bits.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return CopyFileMode(src, dst, info.Mode().Perm())
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CopyIfExists copies src to dst when src exists. It reports whether a copy
// happened.
func CopyIfExists(src, dst string) (bool, error) {
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := CopyFile(src, dst); err != nil {
		return false, fmt.Errorf("copy %s: %w", src, err)
	}
	return true, nil
}

// RemoveIfExists deletes path. A missing file is not an error; the return
// value reports whether something was removed.
func RemoveIfExists(path string) (bool, error) {
	err := os.Remove(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// ForceSymlink points link at target, replacing whatever link held before.
func ForceSymlink(target, link string) error {
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return err
	}
	if _, err := RemoveIfExists(link); err != nil {
		return fmt.Errorf("replace %s: %w", link, err)
	}
	return os.Symlink(target, link)
}
