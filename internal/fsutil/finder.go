// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// FindFilesByExtension recursively searches rootPath for files with the
// given extension ("hcl" and ".hcl" are equivalent). Hidden directories are
// skipped. Paths are returned sorted.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	extension = strings.TrimPrefix(extension, ".")
	if extension == "" {
		return nil, errors.New("extension must not be empty")
	}
	suffix := "." + extension

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != rootPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), suffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}
