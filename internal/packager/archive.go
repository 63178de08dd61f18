package packager

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// archive writes tar entries once, creating parent directory entries on
// demand.
type archive struct {
	tw    *tar.Writer
	seen  map[string]bool
	mtime time.Time
}

// addTree copies root/rel into the archive below dst. rel may name a
// directory or a single file; a missing rel is ignored. skip receives paths
// relative to root.
func (a *archive) addTree(root, rel, dst string, skip func(rel string) bool) error {
	src := filepath.Join(root, filepath.FromSlash(rel))
	if _, err := os.Lstat(src); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relRoot, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		relRoot = filepath.ToSlash(relRoot)
		if relRoot != "." && skip(relRoot) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := path.Join(dst, relRoot)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return a.addDir(name)
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			return a.add(&tar.Header{Typeflag: tar.TypeSymlink, Name: name, Linkname: target, Mode: 0o777, ModTime: info.ModTime()}, nil)
		case info.Mode().IsRegular():
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			defer f.Close()
			hdr := &tar.Header{Typeflag: tar.TypeReg, Name: name, Mode: int64(info.Mode().Perm()), Size: info.Size(), ModTime: info.ModTime()}
			return a.add(hdr, f)
		}
		return nil
	})
}

// addFile writes an in-memory file.
func (a *archive) addFile(name string, data []byte, mode int64) error {
	hdr := &tar.Header{Typeflag: tar.TypeReg, Name: name, Mode: mode, Size: int64(len(data)), ModTime: a.mtime}
	return a.add(hdr, bytes.NewReader(data))
}

func (a *archive) addDir(name string) error {
	name = strings.TrimSuffix(name, "/")
	if name == "." || name == "" || a.seen[name] {
		return nil
	}
	if err := a.addDir(path.Dir(name)); err != nil {
		return err
	}
	a.seen[name] = true
	return a.writeHeader(&tar.Header{Typeflag: tar.TypeDir, Name: name + "/", Mode: 0o755, ModTime: a.mtime})
}

func (a *archive) add(hdr *tar.Header, body io.Reader) error {
	if a.seen[hdr.Name] {
		return nil
	}
	if err := a.addDir(path.Dir(hdr.Name)); err != nil {
		return err
	}
	a.seen[hdr.Name] = true
	if err := a.writeHeader(hdr); err != nil {
		return err
	}
	if body == nil {
		return nil
	}
	if _, err := io.Copy(a.tw, body); err != nil {
		return fmt.Errorf("copy %s: %w", hdr.Name, err)
	}
	return nil
}

func (a *archive) writeHeader(hdr *tar.Header) error {
	if err := a.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write tar header %s: %w", hdr.Name, err)
	}
	return nil
}
