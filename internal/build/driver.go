package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/ctxlog"
	"github.com/specialistvlad/synbuild/internal/dag"
	"github.com/specialistvlad/synbuild/internal/deps"
	"github.com/specialistvlad/synbuild/internal/executor"
	"github.com/specialistvlad/synbuild/internal/model"
)

// Driver builds the modules of one configuration. A Driver keeps the
// per-module status of a single run and must not be reused across runs.
type Driver struct {
	cfg    *config.Configuration
	runner executor.Runner
	opts   Options

	goos     string
	lookPath func(string) bool

	mu     sync.Mutex
	status map[string]Status
	// fixup enables the release consistency step after EPICS base.
	fixup  bool
	result Result
}

// NewDriver creates a build driver.
func NewDriver(cfg *config.Configuration, runner executor.Runner, opts Options) *Driver {
	return &Driver{
		cfg:      cfg,
		runner:   runner,
		opts:     opts,
		goos:     runtime.GOOS,
		lookPath: executor.LookPath,
		status:   make(map[string]Status),
	}
}

// WithLookPath replaces the PATH lookup used by CheckToolsInPath.
func (d *Driver) WithLookPath(fn func(string) bool) *Driver {
	d.lookPath = fn
	return d
}

// Status returns the current status of name.
func (d *Driver) Status(name string) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status[name]
}

// BuildModule builds name after every module it transitively depends on
// that has not been built yet. The dependencies are walked in topological
// order; a module whose dependency failed is skipped.
func (d *Driver) BuildModule(ctx context.Context, name string) (Status, error) {
	if _, ok := d.cfg.Module(name); !ok {
		return Unbuilt, fmt.Errorf("module %s not in install config", name)
	}
	g := deps.Graph(d.cfg)
	closure, err := g.DependencyClosure(name)
	if err != nil {
		return Unbuilt, fmt.Errorf("cannot order dependencies of %s: %w", name, err)
	}
	if err := d.walk(ctx, g, closure); err != nil {
		return d.Status(name), err
	}
	return d.Status(name), nil
}

// BuildAll builds every module flagged for build in stable topological
// order. Non-critical failures are collected and the run continues.
func (d *Driver) BuildAll(ctx context.Context) Result {
	logger := ctxlog.FromContext(ctx)

	g := deps.Graph(d.cfg)
	order, err := g.TopologicalSort()
	if err != nil {
		logger.Error("Cannot compute build order.", "error", err)
		return Result{Aborted: true, AbortReason: err.Error()}
	}

	d.mu.Lock()
	d.fixup = true
	d.mu.Unlock()

	if d.opts.Jobs > 1 {
		return d.buildParallel(ctx, g, order)
	}

	logger.Info("Starting sequential build.", "modules", len(d.cfg.BuildNames()), "make_flag", d.opts.MakeFlag())
	for _, name := range order {
		m, _ := d.cfg.Module(name)
		if !m.Build {
			continue
		}
		closure, err := g.DependencyClosure(name)
		if err != nil {
			d.abort(err.Error())
			break
		}
		if err := d.walk(ctx, g, closure); err != nil {
			break
		}
	}
	return d.snapshot()
}

// walk attempts every name in order and stops once the run is aborted.
func (d *Driver) walk(ctx context.Context, g *dag.Graph, names []string) error {
	for _, n := range names {
		if err := ctx.Err(); err != nil {
			d.abort(fmt.Sprintf("cancelled: %v", err))
			return err
		}
		d.attempt(ctx, g, n)
		if d.aborted() {
			return errors.New(d.snapshot().AbortReason)
		}
	}
	return nil
}

// attempt builds one module whose dependencies have all been attempted.
func (d *Driver) attempt(ctx context.Context, g *dag.Graph, name string) Status {
	logger := ctxlog.FromContext(ctx)

	if s := d.Status(name); s != Unbuilt {
		return s
	}
	if isNoop(name) {
		d.set(name, Built, false)
		return Built
	}

	depNames, _ := g.Dependencies(name)
	for _, dep := range depNames {
		if s := d.Status(dep); s == Failed || s == Skipped {
			logger.Warn("Skipping module due to upstream failure.", "module", name, "dependency", dep)
			d.set(name, Skipped, true)
			return Skipped
		}
	}

	m, _ := d.cfg.Module(name)
	logger.Info(fmt.Sprintf("Building module %s", name))
	if m.CustomBuildScript != "" {
		logger.Info(fmt.Sprintf("Detected custom build script located at %s", m.CustomBuildScript))
	}
	code, err := d.runner.Run(ctx, d.command(m))
	if !executor.Succeeded(code, err) {
		logger.Error(fmt.Sprintf("Failed to build module %s", name), "code", code, "error", err)
		d.set(name, Failed, true)
		if IsCritical(name) {
			d.abort(fmt.Sprintf("critical module %s failed to build", name))
		}
		return Failed
	}

	d.set(name, Built, true)
	logger.Info(fmt.Sprintf("Built module %s", name))

	if name == model.Base && d.fixupEnabled() {
		if err := d.MakeReleasesConsistent(ctx); err != nil {
			logger.Error("Failed to make releases consistent...", "error", err)
			d.abort(err.Error())
		}
	}
	return Built
}

func (d *Driver) command(m *model.Module) executor.Command {
	if m.CustomBuildScript != "" {
		if d.goos == "windows" {
			return executor.Command{Name: m.CustomBuildScript, Dir: m.AbsPath}
		}
		return executor.Command{Name: "bash", Args: []string{m.CustomBuildScript}, Dir: m.AbsPath}
	}
	return executor.Command{Name: "make", Args: []string{"-C", m.AbsPath, d.opts.MakeFlag()}}
}

func (d *Driver) set(name string, s Status, record bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status[name] = s
	if !record {
		return
	}
	switch s {
	case Built:
		d.result.Built = append(d.result.Built, name)
	case Failed:
		d.result.Failed = append(d.result.Failed, name)
	case Skipped:
		d.result.Skipped = append(d.result.Skipped, name)
	}
}

func (d *Driver) abort(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.result.Aborted {
		return
	}
	d.result.Aborted = true
	d.result.AbortReason = reason
}

func (d *Driver) aborted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result.Aborted
}

func (d *Driver) fixupEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fixup
}

func (d *Driver) snapshot() Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.result
	r.Built = append([]string(nil), r.Built...)
	r.Failed = append([]string(nil), r.Failed...)
	r.Skipped = append([]string(nil), r.Skipped...)
	return r
}

// MakeReleasesConsistent runs "make release" in the support area.
func (d *Driver) MakeReleasesConsistent(ctx context.Context) error {
	ctxlog.FromContext(ctx).Info("Running make release to keep releases consistent.")
	if d.cfg.SupportPath == "" {
		return errors.New("make release: no SUPPORT module in install config")
	}
	code, err := d.runner.Run(ctx, executor.Command{Name: "make", Args: []string{"-C", d.cfg.SupportPath, "release"}})
	if err != nil {
		return fmt.Errorf("make release: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("make release exited with non-zero exit code: %d", code)
	}
	return nil
}

// AcquireDependencies runs the host dependency install script. A missing
// script is not an error.
func (d *Driver) AcquireDependencies(ctx context.Context, script string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Grabbing dependencies via script.", "script", script)

	info, err := os.Stat(script)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		logger.Debug("No dependency script found.", "script", script)
		return nil
	}
	if err != nil {
		return err
	}

	cmd := executor.Command{Name: "bash", Args: []string{script}}
	if strings.HasSuffix(script, ".bat") {
		cmd = executor.Command{Name: script}
	}
	code, err := d.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("dependency script: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("dependency script exited with non-zero exit code: %d", code)
	}
	return nil
}

// RequiredTools are looked up in PATH before a build.
var RequiredTools = []string{"make", "perl", "wget", "git", "tar"}

// CheckToolsInPath returns the first required tool missing from PATH.
func (d *Driver) CheckToolsInPath() (string, bool) {
	for _, tool := range RequiredTools {
		if !d.lookPath(tool) {
			return tool, false
		}
	}
	return "", true
}
