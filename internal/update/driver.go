// Package update rewrites the configure files of cloned modules so that
// every RELEASE macro points at the configured install locations, then
// appends the injector files.
package update

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/ctxlog"
	"github.com/specialistvlad/synbuild/internal/model"
	"github.com/specialistvlad/synbuild/internal/release"
)

// NotInSupportRelease lists modules never appended to
// support/configure/RELEASE. Names starting with AD are excluded as well.
var NotInSupportRelease = []string{model.Configure, model.Documentation, model.Utils}

// Driver runs the configuration update phase for one configuration.
type Driver struct {
	cfg *config.Configuration
}

// NewDriver creates an update driver.
func NewDriver(cfg *config.Configuration) *Driver {
	return &Driver{cfg: cfg}
}

// Run performs every update step in order. Injection is optional since it
// appends and is therefore not idempotent.
func (d *Driver) Run(ctx context.Context, withInjection bool) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Updating all RELEASE and configuration files...")

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"areaDetector macros", d.UpdateADMacros},
		{"support macros", d.UpdateSupportMacros},
		{"build flag macros", d.UpdateBuildFlagMacros},
		{"missing support macros", d.AddMissingSupportMacros},
		{"non-build macros", d.CommentNonBuildMacros},
	}
	if withInjection {
		steps = append(steps, struct {
			name string
			fn   func(context.Context) error
		}{"injector files", d.Inject})
	}

	for _, s := range steps {
		logger.Debug("Running update step.", "step", s.name)
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("updating %s: %w", s.name, err)
		}
	}
	return nil
}

// Macros returns the macro/value pairs written into configure files: the
// declared path of every cloned module followed by the build flags. Base
// and support use their absolute paths since nothing defines the macros
// their declared paths start with.
func (d *Driver) Macros() []model.BuildFlag {
	var out []model.BuildFlag
	for _, m := range d.cfg.Modules() {
		if !m.Clone {
			continue
		}
		value := m.RelPath
		if m.Name == model.Base || m.Name == model.Support {
			value = m.AbsPath
		}
		out = append(out, model.BuildFlag{Macro: m.Name, Value: value})
	}
	return append(out, d.cfg.BuildFlags...)
}

// UpdateADMacros rewrites areaDetector/configure including the
// areaDetector macros.
func (d *Driver) UpdateADMacros(ctx context.Context) error {
	if d.cfg.AreaDetectorPath == "" {
		return nil
	}
	return d.rewriteDir(ctx, filepath.Join(d.cfg.AreaDetectorPath, "configure"), d.Macros(), release.RewriteOptions{WithAD: true})
}

// UpdateSupportMacros rewrites support/configure, then the RELEASE file of
// every cloned and built module. Unknown macros in module RELEASE files are
// commented out and referenced macros are defined.
func (d *Driver) UpdateSupportMacros(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	macros := d.Macros()
	if d.cfg.SupportPath != "" {
		if err := d.rewriteDir(ctx, filepath.Join(d.cfg.SupportPath, "configure"), macros, release.RewriteOptions{}); err != nil {
			return err
		}
	}

	opts := release.RewriteOptions{CommentUnsupported: true, WithAD: true, ForceUncomment: true, AutoAddDeps: true}
	for _, m := range d.cfg.Modules() {
		if !m.Clone || !m.Build {
			continue
		}
		rel := filepath.Join(m.AbsPath, "configure", "RELEASE")
		if _, err := os.Stat(rel); err != nil {
			continue
		}
		logger.Info(fmt.Sprintf("Updating RELEASE file for %s...", m.Name))
		if _, err := release.RewriteFile(rel, macros, opts); err != nil {
			return err
		}
	}
	return nil
}

// UpdateBuildFlagMacros writes the build flags into the configure
// directory of every module.
func (d *Driver) UpdateBuildFlagMacros(ctx context.Context) error {
	if len(d.cfg.BuildFlags) == 0 {
		return nil
	}
	var errs *multierror.Error
	for _, m := range d.cfg.Modules() {
		if m.AbsPath == "" {
			continue
		}
		err := d.rewriteDir(ctx, filepath.Join(m.AbsPath, "configure"), d.cfg.BuildFlags, release.RewriteOptions{ForceUncomment: true})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", m.Name, err))
		}
	}
	return errs.ErrorOrNil()
}

func (d *Driver) supportRelease() string {
	if d.cfg.SupportPath == "" {
		return ""
	}
	return filepath.Join(d.cfg.SupportPath, "configure", "RELEASE")
}

// AddMissingSupportMacros appends a NAME=path line to
// support/configure/RELEASE for every cloned module not defined there yet.
// Modules that are not built are appended commented out.
func (d *Driver) AddMissingSupportMacros(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	path := d.supportRelease()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("No support RELEASE file, skipping missing macros.", "path", path)
		return nil
	}

	var active, commented []string
	for _, m := range d.cfg.Modules() {
		if !m.Clone || lo.Contains(NotInSupportRelease, m.Name) || strings.HasPrefix(m.Name, "AD") {
			continue
		}
		found, err := release.HasAssignment(path, m.Name)
		if err != nil {
			return err
		}
		if found {
			continue
		}
		line := fmt.Sprintf("%s=%s", m.Name, m.RelPath)
		if m.Build {
			logger.Debug(fmt.Sprintf("Adding %s path to support/configure/RELEASE", m.Name))
			active = append(active, line)
		} else {
			logger.Debug(fmt.Sprintf("Adding commented %s path to support/configure/RELEASE", m.Name))
			commented = append(commented, "#"+line)
		}
	}
	return release.Append(path, append(active, commented...)...)
}

// CommentNonBuildMacros comments out every support/configure/RELEASE
// assignment that does not name a module flagged for build.
func (d *Driver) CommentNonBuildMacros(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	path := d.supportRelease()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	commented, err := release.CommentUnless(path, func(name string) bool {
		m, ok := d.cfg.Module(name)
		return ok && m.Build
	})
	for _, name := range commented {
		logger.Debug(fmt.Sprintf("Commenting out non-build module %s in support/configure/RELEASE", name))
	}
	return err
}

// Inject appends every injector file to its target. Targets that cannot be
// resolved or do not exist are skipped with a warning.
func (d *Driver) Inject(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	for _, inj := range d.cfg.InjectorFiles {
		res := d.cfg.ResolvePath(inj.Target)
		if !res.OK() {
			logger.Warn("Cannot resolve injector target, skipping.", "injector", inj.Name, "target", inj.Target, "macro", res.Macro)
			continue
		}
		written, ok, err := release.Inject(res.Path, inj.Contents)
		if err != nil {
			return fmt.Errorf("injecting %s: %w", inj.Name, err)
		}
		if !ok {
			logger.Warn("Injector target does not exist, skipping.", "injector", inj.Name, "target", res.Path)
			continue
		}
		logger.Info(fmt.Sprintf("Injected %s into %s", inj.Name, written))
	}
	return nil
}

func (d *Driver) rewriteDir(ctx context.Context, dir string, macros []model.BuildFlag, opts release.RewriteOptions) error {
	written, err := release.RewriteDir(dir, macros, opts)
	ctxlog.FromContext(ctx).Debug("Rewrote configure files.", "dir", dir, "files", len(written))
	return err
}
