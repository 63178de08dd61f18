// Package clone fetches module sources: git repositories are cloned and
// checked out at the configured version, archive modules are downloaded
// over HTTP and unpacked in place.
package clone

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/ctxlog"
	"github.com/specialistvlad/synbuild/internal/executor"
	"github.com/specialistvlad/synbuild/internal/macro"
	"github.com/specialistvlad/synbuild/internal/model"
)

// Recursive modules are cloned with their git submodules.
var Recursive = []string{model.Base, model.Motor}

// IsCritical reports whether failing to fetch m makes the rest of the run
// pointless.
func IsCritical(m *model.Module) bool {
	switch m.Name {
	case model.Base, model.ADSupport, model.ADCore:
		return true
	}
	return strings.HasPrefix(m.RelPath, "$("+model.Support+")")
}

// Driver fetches the modules of one configuration.
type Driver struct {
	cfg    *config.Configuration
	runner executor.Runner
	client *http.Client
}

// NewDriver creates a clone driver downloading archives with a pooled
// cleanhttp client.
func NewDriver(cfg *config.Configuration, runner executor.Runner) *Driver {
	return &Driver{cfg: cfg, runner: runner, client: cleanhttp.DefaultPooledClient()}
}

// WithHTTPClient replaces the client used for archive downloads.
func (d *Driver) WithHTTPClient(c *http.Client) *Driver {
	d.client = c
	return d
}

// Result lists the outcome of CloneAll in manifest order.
type Result struct {
	Cloned []string
	Failed []string
	// Critical is the subset of Failed that must stop the run.
	Critical []string
}

// CloneAll fetches and checks out every module flagged for clone, then
// removes the directories of modules that are not. The returned error
// aggregates every module failure.
func (d *Driver) CloneAll(ctx context.Context) (Result, error) {
	logger := ctxlog.FromContext(ctx)
	var (
		res  Result
		errs *multierror.Error
	)
	for _, m := range d.cfg.Modules() {
		if !m.Clone {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		err := d.CloneModule(ctx, m)
		if err == nil {
			err = d.Checkout(ctx, m)
		}
		if err != nil {
			logger.Error(fmt.Sprintf("Module %s was either unsuccessfully cloned or checked out.", m.Name), "error", err)
			res.Failed = append(res.Failed, m.Name)
			if IsCritical(m) {
				res.Critical = append(res.Critical, m.Name)
			}
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", m.Name, err))
			continue
		}
		res.Cloned = append(res.Cloned, m.Name)
	}

	if _, err := d.Cleanup(ctx); err != nil {
		errs = multierror.Append(errs, err)
	}
	return res, errs.ErrorOrNil()
}

// CloneModule fetches the sources of m into its absolute path, replacing
// whatever was there.
func (d *Driver) CloneModule(ctx context.Context, m *model.Module) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Cloning module.", "module", m.Name, "source", m.SourceURL())

	if err := d.removable(m.AbsPath); err != nil {
		return err
	}
	if err := os.RemoveAll(m.AbsPath); err != nil {
		return fmt.Errorf("clearing %s: %w", m.AbsPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(m.AbsPath), 0o755); err != nil {
		return err
	}

	switch m.URLType {
	case model.GitURL:
		args := []string{"clone"}
		if lo.Contains(Recursive, m.Name) {
			args = append(args, "--recursive")
		}
		args = append(args, m.SourceURL(), m.AbsPath)
		if err := d.run(ctx, executor.Command{Name: "git", Args: args}); err != nil {
			return err
		}
	case model.WgetURL:
		if err := d.fetchArchive(ctx, m); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown url type %q", m.URLType)
	}

	logger.Info(fmt.Sprintf("Cloned module %s successfully.", m.Name))
	return nil
}

func (d *Driver) fetchArchive(ctx context.Context, m *model.Module) error {
	logger := ctxlog.FromContext(ctx)

	format, ok := archiveFormat(m.Repository)
	if !ok {
		return fmt.Errorf("unsupported archive format: %s", m.Repository)
	}
	archive := filepath.Join(filepath.Dir(m.AbsPath), filepath.Base(m.Repository))
	if err := download(ctx, d.client, m.SourceURL(), archive); err != nil {
		return err
	}
	defer os.Remove(archive)

	if err := extract(archive, format, m.AbsPath); err != nil {
		return fmt.Errorf("unpacking %s: %w", filepath.Base(archive), err)
	}
	logger.Info(fmt.Sprintf("Unpacked module %s successfully.", m.Name))
	return nil
}

// Checkout switches a git module to its configured version. Master
// versions and archive modules are left untouched.
func (d *Driver) Checkout(ctx context.Context, m *model.Module) error {
	if !m.IsGit() || m.Version == model.MasterVersion {
		return nil
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Checking out version.", "module", m.Name, "version", m.Version)

	err := d.run(ctx, executor.Command{Name: "git", Args: []string{"checkout", "-q", m.Version}, Dir: m.AbsPath})
	if err == nil && lo.Contains(Recursive, m.Name) {
		err = d.run(ctx, executor.Command{Name: "git", Args: []string{"submodule", "update"}, Dir: m.AbsPath})
	}
	if err != nil {
		return fmt.Errorf("checkout of version %s failed: %w", m.Version, err)
	}
	logger.Info(fmt.Sprintf("Checked out version %s", m.Version))
	return nil
}

// Cleanup removes the directories of modules not flagged for clone and
// returns the names it removed.
func (d *Driver) Cleanup(ctx context.Context) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	var removed []string
	for _, m := range d.cfg.Modules() {
		if m.Clone || m.AbsPath == "" {
			continue
		}
		if _, err := os.Stat(m.AbsPath); err != nil {
			continue
		}
		if err := d.removable(m.AbsPath); err != nil {
			logger.Warn("Refusing to remove module directory.", "module", m.Name, "error", err)
			continue
		}
		// Container modules hold the modules below them.
		if lo.SomeBy(d.cfg.Modules(), func(o *model.Module) bool {
			return o.Clone && o.AbsPath != "" && strings.HasPrefix(o.AbsPath, m.AbsPath+string(filepath.Separator))
		}) {
			continue
		}
		logger.Debug("Removing unused repo.", "module", m.Name, "path", m.AbsPath)
		if err := os.RemoveAll(m.AbsPath); err != nil {
			return removed, fmt.Errorf("removing %s: %w", m.AbsPath, err)
		}
		removed = append(removed, m.Name)
	}
	return removed, nil
}

var errOutsideInstall = errors.New("path is outside the install root")

// removable guards every recursive delete: the path must be resolved and
// strictly below the install root.
func (d *Driver) removable(path string) error {
	if path == "" || macro.Contains(path) {
		return fmt.Errorf("module path %q is not resolved", path)
	}
	rel, err := filepath.Rel(d.cfg.InstallRoot, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s: %w", path, errOutsideInstall)
	}
	return nil
}

func (d *Driver) run(ctx context.Context, cmd executor.Command) error {
	code, err := d.runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("%s exited with non-zero exit code: %d", cmd, code)
	}
	return nil
}
