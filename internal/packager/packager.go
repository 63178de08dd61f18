package packager

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/samber/lo"
	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/ctxlog"
	"github.com/specialistvlad/synbuild/internal/fsutil"
	"github.com/specialistvlad/synbuild/internal/model"
)

// IgnoreFile holds gitignore style exclusions for a module tree.
const IgnoreFile = ".bundleignore"

// DefaultOutputDir is used when Options.OutputDir is empty.
const DefaultOutputDir = "DEPLOYMENTS"

// Options control the layout and name of a bundle.
type Options struct {
	OutputDir string
	// Prefix is the bundle name without the date. DefaultPrefix is used
	// when empty.
	Prefix string
	// Arches selects the bin/<arch> and lib/<arch> directories to grab.
	Arches []string
	// WithSources packages whole module trees, including modules that are
	// only flagged for build.
	WithSources bool
	Now         func() time.Time
}

// DefaultArches returns the architectures built on the host OS.
func DefaultArches(goos string) []string {
	if goos == "windows" {
		return []string{"windows-x64-static"}
	}
	return []string{"linux-x86_64", "linux-x86_64-debug"}
}

// DefaultPrefix names a production or debug bundle for arch.
func DefaultPrefix(withSources bool, arch string) string {
	kind := "Prod"
	if withSources {
		kind = "Debug"
	}
	return fmt.Sprintf("EPICS_%s_Bundle_%s", kind, arch)
}

// Bundle describes a written archive.
type Bundle struct {
	Name    string
	Path    string
	Modules []string
}

// Packager writes bundles for one configuration.
type Packager struct {
	cfg  *config.Configuration
	opts Options
}

// New creates a packager, filling in defaults for unset options.
func New(cfg *config.Configuration, opts Options) *Packager {
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	if len(opts.Arches) == 0 {
		opts.Arches = DefaultArches(runtime.GOOS)
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix(opts.WithSources, opts.Arches[0])
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Packager{cfg: cfg, opts: opts}
}

// Select returns the modules that go into the bundle, in install order.
// Required modules and modules flagged for packaging are included unless
// their build failed.
func (p *Packager) Select(failed []string) []*model.Module {
	return lo.Filter(p.cfg.Modules(), func(m *model.Module, _ int) bool {
		if lo.Contains(failed, m.Name) {
			return false
		}
		return lo.Contains(model.RequiredInPackage, m.Name) || m.Package || (p.opts.WithSources && m.Build)
	})
}

// BundleName returns <prefix>_<date>, suffixed with _(n) when a bundle of
// that name already exists in the output directory.
func (p *Packager) BundleName() string {
	base := fmt.Sprintf("%s_%s", p.opts.Prefix, p.opts.Now().Format(time.DateOnly))
	name := base
	for i := 1; fsutil.Exists(filepath.Join(p.opts.OutputDir, name+".tar.gz")); i++ {
		name = fmt.Sprintf("%s_(%d)", base, i)
	}
	return name
}

// Package writes the bundle, leaving out modules listed in failed.
func (p *Packager) Package(ctx context.Context, failed []string) (Bundle, error) {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return Bundle{}, fmt.Errorf("create output directory: %w", err)
	}
	name := p.BundleName()
	out := filepath.Join(p.opts.OutputDir, name+".tar.gz")
	logger.Info("Beginning bundling process...", "bundle", name)
	start := time.Now()

	selected := p.Select(failed)
	bundle := Bundle{Name: name, Path: out, Modules: lo.Map(selected, func(m *model.Module, _ int) string { return m.Name })}

	if err := p.write(ctx, out, name, selected, failed); err != nil {
		os.Remove(out)
		return Bundle{}, err
	}
	if err := writeCleanupTool(p.opts.OutputDir); err != nil {
		logger.Warn("Failed to write bundle cleanup tool.", "error", err)
	}

	logger.Info(fmt.Sprintf("Done. Wrote tarball to %s.", out), "elapsed", time.Since(start).Round(time.Millisecond))
	return bundle, nil
}

func (p *Packager) write(ctx context.Context, out, name string, modules []*model.Module, failed []string) (err error) {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	a := &archive{tw: tw, seen: map[string]bool{}, mtime: p.opts.Now()}

	if err := p.grabModules(ctx, a, name, modules); err != nil {
		return err
	}
	readme := p.readme(name, modules, failed)
	if err := a.addFile(path.Join(name, "README"), []byte(readme), 0o644); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	return gz.Close()
}

func (p *Packager) grabModules(ctx context.Context, a *archive, name string, modules []*model.Module) error {
	logger := ctxlog.FromContext(ctx)
	global := compileIgnore(filepath.Join(p.cfg.ConfigureDir, IgnoreFile), p.cfg.ConfigureDir != "")

	support := path.Join(name, "support")
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fsutil.Exists(m.AbsPath) {
			logger.Debug(fmt.Sprintf("Module %s not found, skipping...", m.Name))
			continue
		}

		var top string
		var dirs []string
		switch {
		case m.Name == model.Base:
			top = path.Join(name, "base")
			dirs = baseDirs(p.opts.Arches)
			if p.opts.WithSources {
				dirs = []string{"."}
			}
		case m.Name == model.Support:
			if !p.opts.WithSources {
				continue
			}
			top = support
			dirs = []string{"configure", "utils", "Makefile"}
		case m.Name == model.AreaDetector && p.opts.WithSources:
			top = path.Join(support, filepath.Base(m.AbsPath))
			dirs = []string{"configure"}
		default:
			top = path.Join(support, filepath.Base(m.AbsPath))
			if strings.HasPrefix(m.RelPath, "$("+model.AreaDetector+")") {
				top = path.Join(support, "areaDetector", filepath.Base(m.AbsPath))
			}
			dirs = moduleDirs(m.AbsPath, p.opts.Arches)
			if p.opts.WithSources {
				dirs = []string{"."}
			}
		}

		logger.Debug(fmt.Sprintf("Grabbing files for module %s.", m.Name), "target", top)
		local := compileIgnore(filepath.Join(m.AbsPath, IgnoreFile), true)
		skip := func(rel string) bool {
			if rel == IgnoreFile || rel == ".git" || strings.HasPrefix(rel, ".git/") {
				return true
			}
			return (local != nil && local.MatchesPath(rel)) || (global != nil && global.MatchesPath(rel))
		}
		for _, d := range dirs {
			if err := a.addTree(m.AbsPath, d, top, skip); err != nil {
				return fmt.Errorf("package %s: %w", m.Name, err)
			}
		}
	}
	return nil
}

// baseDirs lists the parts of EPICS base a lean bundle carries.
func baseDirs(arches []string) []string {
	var dirs []string
	for _, arch := range arches {
		dirs = append(dirs, path.Join("bin", arch), path.Join("lib", arch))
	}
	return append(dirs, "lib/perl", "cfg", "configure", "include", "startup", "db", "dbd")
}

// moduleDirs lists the parts of a support module a lean bundle carries.
// Application Db and op directories and the IOCs below iocs/ are discovered
// from the module tree.
func moduleDirs(root string, arches []string) []string {
	dirs := []string{"opi", "db", "dbd", "include"}
	for _, arch := range arches {
		dirs = append(dirs, path.Join("bin", arch), path.Join("lib", arch))
	}
	dirs = append(dirs, "configure", "modules", "iocBoot", "ADViewers/ImageJ")

	entries, _ := os.ReadDir(root)
	for _, e := range entries {
		if e.IsDir() && strings.Contains(e.Name(), "App") && !strings.HasPrefix(e.Name(), "test") {
			dirs = append(dirs, path.Join(e.Name(), "Db"), path.Join(e.Name(), "op"))
		}
	}

	iocs, _ := os.ReadDir(filepath.Join(root, "iocs"))
	for _, e := range iocs {
		if !e.IsDir() || !strings.Contains(e.Name(), "IOC") {
			continue
		}
		ioc := path.Join("iocs", e.Name())
		for _, arch := range arches {
			dirs = append(dirs, path.Join(ioc, "bin", arch), path.Join(ioc, "lib", arch))
		}
		dirs = append(dirs, path.Join(ioc, "dbd"), path.Join(ioc, "iocBoot"))
	}
	return dirs
}

func compileIgnore(file string, enabled bool) *ignore.GitIgnore {
	if !enabled || !fsutil.Exists(file) {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(file)
	if err != nil {
		return nil
	}
	return gi
}

func writeCleanupTool(dir string) error {
	if runtime.GOOS == "windows" {
		return os.WriteFile(filepath.Join(dir, "cleanup.bat"), []byte("@echo OFF\n\ndel *.tar.gz\n\n"), 0o644)
	}
	return os.WriteFile(filepath.Join(dir, "cleanup.sh"), []byte("#!/bin/bash\n\nrm *.tar.gz\n\n"), 0o755)
}
