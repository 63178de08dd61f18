package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/synbuild/internal/build"
	"github.com/specialistvlad/synbuild/internal/clone"
	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/ctxlog"
	"github.com/specialistvlad/synbuild/internal/deps"
	"github.com/specialistvlad/synbuild/internal/manifest"
	"github.com/specialistvlad/synbuild/internal/packager"
	"github.com/specialistvlad/synbuild/internal/tags"
	"github.com/specialistvlad/synbuild/internal/update"
)

// DefaultInstallRoot is used by Init when no install override is given.
const DefaultInstallRoot = "/epics"

var (
	// ErrUnresolved is returned when module paths reference undefined macros.
	ErrUnresolved = errors.New("unresolved module paths")
	// ErrCriticalClone is returned when a module every build needs could
	// not be fetched.
	ErrCriticalClone = errors.New("critical module failed to clone")
	// ErrMissingTool is returned when a required tool is not in PATH.
	ErrMissingTool = errors.New("required tool not found in PATH")
	// ErrBuildAborted is returned when the build stopped early.
	ErrBuildAborted = errors.New("build aborted")
)

// Run executes the enabled phases in order. The report is returned even on
// error and describes everything done up to the failure.
func (a *App) Run(ctx context.Context) (*Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ctx = ctxlog.WithCommandEcho(ctx, a.config.Logging.PrintCommands)
	a.logger.Debug("App.Run method started.")

	report := &Report{RunID: a.runID}
	if a.config.Init {
		return report, a.writeDefault(ctx)
	}

	cfg, err := a.loader.Load(ctx, a.config.ConfigurePath)
	if err != nil {
		return report, fmt.Errorf("failed to load configuration: %w", err)
	}
	report.InstallRoot = cfg.InstallRoot
	if unresolved := cfg.Finalize(); len(unresolved) > 0 {
		return report, fmt.Errorf("%w: %s", ErrUnresolved, strings.Join(unresolved, ", "))
	}
	if !a.config.AllowIllegal {
		if err := cfg.ValidateInstallRoot(); err != nil {
			return report, err
		}
	}
	phases := a.config.Phases
	a.logger.Info(fmt.Sprintf("Loaded install configuration with %d modules.", cfg.Len()), "install", cfg.InstallRoot, "phases", phases.String())

	if a.config.SyncTags {
		updates, err := tags.NewSyncer(a.lister).Sync(ctx, cfg)
		report.TagUpdates = updates
		if err != nil {
			a.logger.Warn("Some module tags could not be synced.", "error", err)
		}
	}

	if phases.Clone {
		res, err := clone.NewDriver(cfg, a.runner).CloneAll(ctx)
		report.Clone = res
		if len(res.Critical) > 0 {
			return report, fmt.Errorf("%w: %s", ErrCriticalClone, strings.Join(res.Critical, ", "))
		}
		if err != nil {
			a.logger.Warn("Some modules failed to clone.", "error", err)
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	if phases.Update {
		if err := update.NewDriver(cfg).Run(ctx, true); err != nil {
			return report, fmt.Errorf("failed to update configuration: %w", err)
		}
	}

	if phases.Build || a.config.PlanPath != "" {
		if err := a.orderModules(ctx, cfg, report); err != nil {
			return report, err
		}
	}
	report.Order = cfg.Names()

	if a.config.PlanPath != "" {
		if err := writePlan(a.config.PlanPath, cfg); err != nil {
			return report, fmt.Errorf("failed to write build plan: %w", err)
		}
		a.logger.Info(fmt.Sprintf("Wrote build plan to %s", a.config.PlanPath))
	}

	if phases.Build {
		res, err := a.build(ctx, cfg)
		report.Build = res
		if err != nil {
			return report, err
		}
	}

	if phases.Package {
		p := packager.New(cfg, packager.Options{OutputDir: a.config.OutputDir, WithSources: a.config.WithSources})
		bundle, err := p.Package(ctx, report.excluded())
		if err != nil {
			return report, fmt.Errorf("failed to package: %w", err)
		}
		report.Bundle = &bundle
	}

	a.logger.Debug("App.Run method finished.")
	return report, nil
}

// orderModules demotes modules with unsatisfied dependencies and moves every
// dependency ahead of its dependents.
func (a *App) orderModules(ctx context.Context, cfg *config.Configuration, report *Report) error {
	messages, err := deps.Validate(ctx, cfg)
	report.DependencyProblems = messages
	var problems *multierror.Error
	if err != nil && !errors.As(err, &problems) {
		return err
	}
	for _, msg := range messages {
		a.logger.Warn(msg)
	}

	swaps, err := deps.RepairOrder(ctx, cfg)
	if err != nil {
		return err
	}
	a.logger.Debug("Build order settled.", "swaps", swaps, "order", cfg.Names())
	return nil
}

func (a *App) build(ctx context.Context, cfg *config.Configuration) (*build.Result, error) {
	d := build.NewDriver(cfg, a.runner, a.config.Build)
	if a.lookPath != nil {
		d.WithLookPath(a.lookPath)
	}

	if a.config.DependencyScript != "" {
		if err := d.AcquireDependencies(ctx, a.config.DependencyScript); err != nil {
			return nil, err
		}
	}
	if tool, ok := d.CheckToolsInPath(); !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingTool, tool)
	}

	res := d.BuildAll(ctx)
	if res.Aborted {
		return &res, fmt.Errorf("%w: %s", ErrBuildAborted, res.AbortReason)
	}
	return &res, nil
}

func writePlan(path string, cfg *config.Configuration) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := manifest.WritePlan(f, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeDefault saves the stock configuration into ConfigurePath.
func (a *App) writeDefault(ctx context.Context) error {
	install := a.config.InstallOverride
	if install == "" {
		install = DefaultInstallRoot
	}
	dir := a.config.ConfigurePath
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := manifest.NewWriter(manifest.Default(install, false)).Write(ctx, dir, false); err != nil {
		return fmt.Errorf("failed to write default configuration: %w", err)
	}
	a.logger.Info(fmt.Sprintf("Wrote default install configuration to %s", dir))
	return nil
}
