package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/ctxlog"
	"github.com/specialistvlad/synbuild/internal/fsutil"
	"github.com/specialistvlad/synbuild/internal/model"
)

const moduleLineFormat = "%-16s %-20s %-40s %-24s %-16s %-16s %s\n"

// Writer saves a configuration as a configure directory.
type Writer struct {
	cfg *config.Configuration
	now func() time.Time
}

// NewWriter creates a writer for cfg.
func NewWriter(cfg *config.Configuration) *Writer {
	return &Writer{cfg: cfg, now: time.Now}
}

// Write saves the manifest, injector files, build flags and custom build
// scripts into dir. With overwrite, previously saved injector files, build
// flags and the manifest are removed first. Module dependencies are not
// saved.
func (w *Writer) Write(ctx context.Context, dir string, overwrite bool) error {
	logger := ctxlog.FromContext(ctx)

	if overwrite {
		for _, p := range []string{InjectionDir, MacroDir, FileName} {
			if err := os.RemoveAll(filepath.Join(dir, p)); err != nil {
				return fmt.Errorf("failed to clear %s: %w", p, err)
			}
		}
	}
	for _, sub := range []string{InjectionDir, MacroDir, ScriptDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to make configuration directories: %w", err)
		}
	}

	logger.Debug("Writing injector files.")
	if err := w.writeInjectorFiles(dir); err != nil {
		return err
	}
	logger.Debug("Writing build flags.")
	if err := w.writeBuildFlags(dir); err != nil {
		return err
	}
	logger.Debug("Writing custom build scripts.")
	w.copyCustomBuildScripts(ctx, dir)

	logger.Debug("Writing INSTALL_CONFIG file.")
	return os.WriteFile(filepath.Join(dir, FileName), []byte(w.manifest()), 0o644)
}

func (w *Writer) stamp() string {
	return w.now().Format(time.DateTime)
}

func (w *Writer) writeInjectorFiles(dir string) error {
	for _, inj := range w.cfg.InjectorFiles {
		var sb strings.Builder
		fmt.Fprintf(&sb, "# Saved by synbuild on %s\n", w.stamp())
		fmt.Fprintf(&sb, "%s%s\n\n", targetPrefix, inj.Target)
		sb.WriteString(inj.Contents)
		if err := os.WriteFile(filepath.Join(dir, InjectionDir, inj.Name), []byte(sb.String()), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeBuildFlags(dir string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Saved by synbuild on %s\n\n", w.stamp())
	for _, f := range w.cfg.BuildFlags {
		fmt.Fprintf(&sb, "%s=%s\n", f.Macro, f.Value)
	}
	return os.WriteFile(filepath.Join(dir, MacroDir, BuildFlagFile), []byte(sb.String()), 0o644)
}

func (w *Writer) copyCustomBuildScripts(ctx context.Context, dir string) {
	logger := ctxlog.FromContext(ctx)
	for _, m := range w.cfg.Modules() {
		if m.CustomBuildScript == "" {
			continue
		}
		dst := filepath.Join(dir, ScriptDir, filepath.Base(m.CustomBuildScript))
		if !fsutil.Exists(m.CustomBuildScript) || fsutil.Exists(dst) {
			logger.Debug("Not copying custom build script.", "script", m.CustomBuildScript)
			continue
		}
		logger.Debug("Copying module custom build script.", "script", m.CustomBuildScript)
		if err := fsutil.CopyFile(m.CustomBuildScript, dst); err != nil {
			logger.Debug("Encountered error copying custom build script.", "script", m.CustomBuildScript, "error", err)
		}
	}
}

func (w *Writer) manifest() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#\n# INSTALL_CONFIG file saved by synbuild on %s\n#\n\n", w.stamp())
	fmt.Fprintf(&sb, "INSTALL=%s\n\n\n", w.cfg.InstallRoot)
	sb.WriteString("#MODULE_NAME    MODULE_VERSION          MODULE_PATH                             MODULE_REPO         CLONE_MODULE    BUILD_MODULE    PACKAGE_MODULE\n")
	sb.WriteString("#" + strings.Repeat("-", 146) + "\n")

	// A header applies its url and type to every following module line.
	var currentType model.URLType
	currentURL := ""
	for _, m := range w.cfg.Modules() {
		if m.URL != currentURL || m.URLType != currentType {
			fmt.Fprintf(&sb, "\n%s=%s\n\n", m.URLType, m.URL)
			currentURL, currentType = m.URL, m.URLType
		}
		fmt.Fprintf(&sb, moduleLineFormat, m.Name, m.Version, m.RelPath, m.RelRepo,
			model.FormatFlag(m.Clone), model.FormatFlag(m.Build), model.FormatFlag(m.Package))
	}
	return sb.String()
}
