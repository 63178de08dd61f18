// Package release reads and rewrites the line oriented NAME=VALUE files found
// in EPICS configure directories (RELEASE, CONFIG_SITE and friends), and
// appends injector blocks into generated IOC startup files.
package release

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Assignment is one NAME=VALUE line.
type Assignment struct {
	Name      string
	Value     string
	Commented bool
}

// Line renders the assignment back to file syntax.
func (a Assignment) Line() string {
	if a.Commented {
		return "#" + a.Name + "=" + a.Value
	}
	return a.Name + "=" + a.Value
}

// ParseAssignments returns every active assignment of r in file order.
// Commented lines and lines without '=' are skipped, and all spaces are
// removed from assignment lines before they are split at the first '='.
func ParseAssignments(r io.Reader) ([]Assignment, error) {
	var out []Assignment
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		a, ok := parseLine(sc.Text())
		if !ok || a.Commented {
			continue
		}
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read assignments: %w", err)
	}
	return out, nil
}

// ReadAssignments is ParseAssignments on a file. A missing file yields no
// assignments and no error.
func ReadAssignments(path string) ([]Assignment, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseAssignments(f)
}

func parseLine(raw string) (Assignment, bool) {
	line := strings.TrimSpace(raw)
	commented := strings.HasPrefix(line, "#")
	if commented {
		line = strings.TrimLeft(line, "#")
	}
	name, value, ok := strings.Cut(strings.ReplaceAll(line, " ", ""), "=")
	if !ok || name == "" {
		return Assignment{}, false
	}
	return Assignment{Name: name, Value: value, Commented: commented}, true
}

// HasAssignment reports whether path contains an active line starting with
// name followed by '='.
func HasAssignment(path, name string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, name+"=") {
			return true, nil
		}
	}
	return false, nil
}

// Append adds lines at the end of path, creating the file when needed.
func Append(path string, lines ...string) error {
	if len(lines) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := io.WriteString(f, l+"\n"); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

// CommentUnless prefixes every active assignment of path whose name is
// rejected by keep with '#'. Comment lines and lines starting with '-' are
// left alone.
func CommentUnless(path string, keep func(name string) bool) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var commented []string
	lines := strings.SplitAfter(string(data), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		name, _, ok := strings.Cut(line, "=")
		if !ok || keep(name) {
			continue
		}
		lines[i] = "#" + line
		commented = append(commented, name)
	}
	return commented, writeAtomic(path, []byte(strings.Join(lines, "")))
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ExamplePrefix marks template files shipped by modules. Rewriting or
// injecting into one produces the file without the prefix.
const ExamplePrefix = "EXAMPLE_"

// StripExample returns path with the ExamplePrefix removed from its base name.
func StripExample(path string) string {
	dir, base := filepath.Split(path)
	return dir + strings.TrimPrefix(base, ExamplePrefix)
}
