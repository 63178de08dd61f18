package release

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/specialistvlad/synbuild/internal/macro"
	"github.com/specialistvlad/synbuild/internal/model"
)

// OldFilesDir receives the original of every rewritten file.
const OldFilesDir = "OLD_FILES"

// adModules are held back from support/configure/RELEASE, areaDetector is
// configured through its own configure directory.
var adModules = []string{model.ADCore, model.AreaDetector, model.ADSupport}

// RewriteOptions tune RewriteFile.
type RewriteOptions struct {
	// CommentUnsupported comments out active assignments that are not in
	// the macro list.
	CommentUnsupported bool
	// WithAD allows areaDetector macros to be rewritten.
	WithAD bool
	// ForceUncomment rewrites "#NAME=..." lines of known macros as active
	// assignments instead of keeping them commented.
	ForceUncomment bool
	// AutoAddDeps inserts a definition for any known macro referenced by a
	// written value that the file does not define itself.
	AutoAddDeps bool
}

var spaces = regexp.MustCompile(` +`)

// RewriteFile replaces the values of known macros in path. The original file
// is moved into OLD_FILES/ next to it and the result is written without any
// EXAMPLE_ prefix. It returns the path of the written file.
func RewriteFile(path string, macros []model.BuildFlag, opts RewriteOptions) (string, error) {
	dir, name := filepath.Split(path)
	oldDir := filepath.Join(dir, OldFilesDir)
	if err := os.MkdirAll(oldDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", oldDir, err)
	}
	oldPath := filepath.Join(oldDir, name)
	if err := os.Rename(path, oldPath); err != nil {
		return "", fmt.Errorf("failed to move %s aside: %w", path, err)
	}

	data, err := os.ReadFile(oldPath)
	if err != nil {
		return "", err
	}

	out := StripExample(path)
	rewritten := rewrite(string(data), macros, opts)
	if err := os.WriteFile(out, []byte(rewritten), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	return out, nil
}

func rewrite(src string, macros []model.BuildFlag, opts RewriteOptions) string {
	var sb strings.Builder
	defined := definedNames(src)
	values := make(map[string]string, len(macros))
	for _, m := range macros {
		if _, ok := values[m.Macro]; !ok {
			values[m.Macro] = m.Value
		}
	}

	writeAssignment := func(name, value string, commented bool) {
		if opts.AutoAddDeps && !commented {
			for _, ref := range macro.Names(value) {
				refValue, known := values[ref]
				if !known || defined[ref] {
					continue
				}
				fmt.Fprintf(&sb, "%s=%s\n", ref, refValue)
				defined[ref] = true
			}
		}
		if commented {
			sb.WriteString("#")
		} else {
			defined[name] = true
		}
		fmt.Fprintf(&sb, "%s=%s\n", name, value)
	}

	sc := bufio.NewScanner(strings.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		commented := strings.HasPrefix(line, "#")
		if !commented && strings.Contains(line, "=") {
			line = spaces.ReplaceAllString(line, "")
		}
		if commented && !strings.Contains(line, "=") {
			sb.WriteString(line + "\n")
			continue
		}

		wrote := false
		for _, m := range macros {
			if !commented && strings.HasPrefix(line, m.Macro+"=") && (opts.WithAD || !slices.Contains(adModules, m.Macro)) {
				writeAssignment(m.Macro, m.Value, false)
				wrote = true
				break
			}
			if commented && strings.HasPrefix(line, "#"+m.Macro+"=") {
				writeAssignment(m.Macro, m.Value, !opts.ForceUncomment)
				wrote = true
				break
			}
		}
		if wrote {
			continue
		}
		if opts.CommentUnsupported && !commented && len(line) > 1 {
			sb.WriteString("#" + line + "\n")
			continue
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func definedNames(src string) map[string]bool {
	out := map[string]bool{}
	for _, line := range strings.Split(src, "\n") {
		if a, ok := parseLine(line); ok && !a.Commented {
			out[a.Name] = true
		}
	}
	return out
}

// skipRewrite reports files of a configure directory that are never macro
// files.
func skipRewrite(name string) bool {
	return strings.HasSuffix(name, ".pl") || strings.HasSuffix(name, ".ioc") || name == "Makefile"
}

// RewriteDir applies RewriteFile to every regular file directly inside dir,
// skipping perl scripts, IOC files and the Makefile. A missing dir is not an
// error. It returns the written paths.
func RewriteDir(dir string, macros []model.BuildFlag, opts RewriteOptions) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var written []string
	for _, e := range entries {
		if !e.Type().IsRegular() || skipRewrite(e.Name()) {
			continue
		}
		out, err := RewriteFile(filepath.Join(dir, e.Name()), macros, opts)
		if err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}
