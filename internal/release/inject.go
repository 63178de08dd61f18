package release

import (
	"errors"
	"io/fs"
	"os"
	"strings"
)

const (
	injectHeader = "\n# ------------The following was auto-generated by synbuild-------\n\n"
	injectFooter = "\n# --------------------------Auto-generated end----------------------\n"
)

// Inject appends contents to target between auto-generated markers. When
// target is an EXAMPLE_ file it is renamed to its final name first. A target
// that exists under neither name is skipped and reported with ok false.
func Inject(target, contents string) (written string, ok bool, err error) {
	final := StripExample(target)
	targetExists := exists(target)
	if !targetExists && !exists(final) {
		return "", false, nil
	}

	if final != target && targetExists {
		if err := os.Rename(target, final); err != nil {
			return "", false, err
		}
	}

	f, err := os.OpenFile(final, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", false, err
	}
	var sb strings.Builder
	sb.WriteString(injectHeader)
	sb.WriteString(contents)
	sb.WriteString(injectFooter)
	if _, err := f.WriteString(sb.String()); err != nil {
		f.Close()
		return "", false, err
	}
	return final, true, f.Close()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
