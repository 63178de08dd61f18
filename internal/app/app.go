package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/executor"
	"github.com/specialistvlad/synbuild/internal/fsutil"
	hclconfig "github.com/specialistvlad/synbuild/internal/hcl"
	"github.com/specialistvlad/synbuild/internal/manifest"
	"github.com/specialistvlad/synbuild/internal/tags"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	runID    string
	runner   executor.Runner
	lister   tags.Lister
	loader   config.Loader
	lookPath func(string) bool
}

// Option customizes an App, mostly for tests.
type Option func(*App)

// WithRunner replaces the process runner used by every phase.
func WithRunner(r executor.Runner) Option {
	return func(a *App) { a.runner = r }
}

// WithTagLister replaces the remote tag lister used by tag sync.
func WithTagLister(l tags.Lister) Option {
	return func(a *App) { a.lister = l }
}

// WithLoader replaces the configuration loader picked from the configure path.
func WithLoader(l config.Loader) Option {
	return func(a *App) { a.loader = l }
}

// WithLookPath replaces the PATH lookup of the required tool check.
func WithLookPath(fn func(string) bool) Option {
	return func(a *App) { a.lookPath = fn }
}

// NewApp is the constructor for the main application. It returns an App
// with its own isolated logger tagged with a fresh run id.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) *App {
	runID := uuid.NewString()
	logger := newLogger(cfg.Logging, outW).With("run_id", runID)
	logger.Debug("Logger configured successfully.")

	exec := executor.NewExec(outW, outW, cfg.CommandTimeout)
	a := &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		runID:  runID,
		runner: exec,
		lister: tags.NewGitLister(exec),
		loader: selectLoader(cfg.ConfigurePath, cfg.InstallOverride),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunID identifies the run in every log record.
func (a *App) RunID() string {
	return a.runID
}

// selectLoader picks the HCL loader for .hcl files and for directories that
// hold .hcl files but no INSTALL_CONFIG. Everything else is read as an
// INSTALL_CONFIG manifest.
func selectLoader(path, install string) config.Loader {
	if strings.HasSuffix(path, ".hcl") {
		return hclconfig.NewLoader(install)
	}
	info, err := os.Stat(path)
	if err == nil && info.IsDir() && !fsutil.Exists(filepath.Join(path, manifest.FileName)) {
		if files, _ := fsutil.FindFiles(path, ".hcl"); len(files) > 0 {
			return hclconfig.NewLoader(install)
		}
	}
	return manifest.NewLoader(install)
}
