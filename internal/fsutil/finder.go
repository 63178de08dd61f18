// Package fsutil holds the small file system helpers shared by the loaders,
// the writer and the packager.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// FindFiles returns every regular file below root whose name ends in ext,
// sorted by full path. Hidden directories such as .git are not entered.
func FindFiles(root, ext string) ([]string, error) {
	if ext == "" {
		panic("fsutil: extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// WalkDir orders by entry name, which puts a/x.hcl before a.hcl.
	slices.Sort(files)
	return files, nil
}
