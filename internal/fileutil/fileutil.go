// Package fileutil provides the filesystem helpers shared by the conversion
// and atlas pipelines.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// UniquePath returns path if nothing exists there, otherwise the first
// "stem_N.ext" variant (N starting at 1) that is free. Existing files are
// never overwritten.
func UniquePath(path string) (string, error) {
	if !exists(path) {
		return path, nil
	}
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := path[:len(path)-len(ext)]
	stem = filepath.Base(stem)
	for i := 1; i < 10000; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free filename for %s after 10000 attempts", path)
}

// RemoveFileIfExists deletes path, treating "already gone" as success.
func RemoveFileIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// IsNonEmptyFile reports whether path names a regular file with size > 0.
func IsNonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// RemoveTreeBestEffort deletes a directory tree without failing the caller.
// Read-only entries are made writable first so residual locked files from a
// killed extraction cannot abort cleanup; leftovers are reported, not fatal.
func RemoveTreeBestEffort(dir string) {
	if dir == "" {
		return
	}
	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if info, infoErr := entry.Info(); infoErr == nil && info.Mode().Perm()&0o200 == 0 {
			_ = os.Chmod(path, info.Mode().Perm()|0o200)
		}
		return nil
	})
	_ = os.RemoveAll(dir)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
