package manifest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/samber/lo"
	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/ctxlog"
	"github.com/specialistvlad/synbuild/internal/model"
)

// Names of the files and directories making up a configure directory.
const (
	FileName      = "INSTALL_CONFIG"
	InjectionDir  = "injectionFiles"
	MacroDir      = "macroFiles"
	ScriptDir     = "customBuildScripts"
	BuildFlagFile = "BUILD_FLAG_CONFIG"

	targetPrefix = "__TARGET_LOC__="
	defaultURL   = "dummy_url.com"
)

var (
	// ErrNoInstall is returned for a manifest without an INSTALL= line.
	ErrNoInstall = errors.New("could not find INSTALL defined in given path")
	// ErrConfigureNotFound is returned when the manifest file does not exist.
	ErrConfigureNotFound = errors.New("configure path not found")
)

// Loader reads INSTALL_CONFIG manifests. It implements config.Loader.
type Loader struct {
	// InstallOverride replaces the INSTALL= location when non-empty.
	InstallOverride string
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a manifest loader.
func NewLoader(installOverride string) *Loader {
	return &Loader{InstallOverride: installOverride}
}

// Load reads the manifest at path, which is either a configure directory or
// the manifest file itself, together with its injector files, build flags
// and custom build scripts.
func (l *Loader) Load(ctx context.Context, path string) (*config.Configuration, error) {
	logger := ctxlog.FromContext(ctx)

	dir, file := path, FileName
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigureNotFound, path)
	}
	if !info.IsDir() {
		dir, file = filepath.Dir(path), filepath.Base(path)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	f, err := os.Open(filepath.Join(dir, file))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigureNotFound, err)
	}
	defer f.Close()

	cfg, err := l.Parse(ctx, f, dir)
	if err != nil {
		return nil, err
	}
	logger.Debug("Parsed install config.", "path", filepath.Join(dir, file), "modules", cfg.Len())

	if err := readInjectorFiles(ctx, cfg, dir); err != nil {
		return nil, err
	}
	if err := readBuildFlags(cfg, dir); err != nil {
		return nil, err
	}
	if err := ReadCustomBuildScripts(cfg, dir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads the module table from r. Module lines before the INSTALL=
// line are ignored. configureDir is recorded on the configuration.
func (l *Loader) Parse(ctx context.Context, r io.Reader, configureDir string) (*config.Configuration, error) {
	logger := ctxlog.FromContext(ctx)

	var cfg *config.Configuration
	currentURL, currentType := defaultURL, model.GitURL

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") || len(line) <= 1 {
			continue
		}
		switch {
		case strings.HasPrefix(line, "INSTALL="):
			loc := l.InstallOverride
			if loc == "" {
				loc = strings.TrimSuffix(line[strings.LastIndex(line, "=")+1:], "/")
			}
			if runtime.GOOS == "windows" && strings.HasPrefix(loc, "/") {
				logger.Debug("Using linux path on windows, prepending C: to path.")
				loc = "C:" + loc
			}
			cfg = config.New(loc, configureDir)
		case strings.HasPrefix(line, string(model.GitURL)), strings.HasPrefix(line, string(model.WgetURL)):
			name, url, _ := strings.Cut(line, "=")
			t, err := model.ParseURLType(name)
			if err != nil {
				return nil, err
			}
			currentType = t
			currentURL = url
			if !strings.HasSuffix(currentURL, "/") {
				currentURL += "/"
			}
		default:
			m, ok := ParseModuleLine(line, currentURL, currentType)
			if !ok || cfg == nil {
				continue
			}
			logger.Debug(fmt.Sprintf("Parsed install module: %s", m.Name))
			cfg.AddModule(m)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNoInstall
	}
	return cfg, nil
}

// ParseModuleLine parses one row of the module table:
//
//	NAME VERSION REL_PATH REPOSITORY CLONE BUILD [PACKAGE]
//
// Rows with fewer than six columns are rejected. PACKAGE defaults to NO and
// is forced on for modules every bundle needs.
func ParseModuleLine(line, url string, urlType model.URLType) (*model.Module, bool) {
	cols := strings.Fields(line)
	if len(cols) < 6 {
		return nil, false
	}
	pkg := false
	switch {
	case lo.Contains(model.RequiredInPackage, cols[0]):
		pkg = true
	case len(cols) >= 7:
		pkg = model.ParseFlag(cols[6])
	}
	return model.NewModule(cols[0], cols[1], cols[2], urlType, url, cols[3], model.ParseFlag(cols[4]), model.ParseFlag(cols[5]), pkg), true
}

func readInjectorFiles(ctx context.Context, cfg *config.Configuration, dir string) error {
	entries, err := os.ReadDir(filepath.Join(dir, InjectionDir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	found := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, InjectionDir, e.Name()))
		if err != nil {
			return err
		}
		contents, target := parseInjector(string(data))
		cfg.AddInjectorFile(e.Name(), contents, target)
		found++
	}
	if found == 0 {
		ctxlog.FromContext(ctx).Debug("No injector files found, generating defaults.")
		for _, inj := range DefaultInjectors() {
			cfg.AddInjectorFile(inj.Name, inj.Contents, inj.Target)
		}
	}
	return nil
}

func parseInjector(data string) (contents, target string) {
	var sb strings.Builder
	for _, line := range strings.SplitAfter(data, "\n") {
		if strings.HasPrefix(line, "#") || len(line) <= 1 {
			continue
		}
		if strings.HasPrefix(line, targetPrefix) {
			target = strings.TrimSpace(strings.TrimPrefix(line, targetPrefix))
			continue
		}
		sb.WriteString(line)
	}
	return sb.String(), target
}

// DefaultInjectors is the injector set used when a configure directory has
// none of its own.
func DefaultInjectors() []model.InjectorFile {
	return []model.InjectorFile{
		{Name: "AD_RELEASE_CONFIG", Target: "$(AREA_DETECTOR)/configure/RELEASE_PRODS.local"},
		{Name: "AUTOSAVE_CONFIG", Target: "$(AREA_DETECTOR)/ADCore/iocBoot/EXAMPLE_commonPlugin_settings.req"},
		{Name: "MAKEFILE_CONFIG", Target: "$(AREA_DETECTOR)/ADCore/ADApp/commonDriverMakefile"},
		{Name: "PLUGIN_CONFIG", Target: "$(AREA_DETECTOR)/ADCore/iocBoot/EXAMPLE_commonPlugins.cmd"},
		// quadEM needs the areaDetector products.
		{Name: "QUADEM_RELEASE", Contents: "-include $(AREA_DETECTOR)/configure/RELEASE_PRODS.local", Target: "$(SUPPORT)/quadEM/configure/RELEASE"},
	}
}

func readBuildFlags(cfg *config.Configuration, dir string) error {
	entries, err := os.ReadDir(filepath.Join(dir, MacroDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, MacroDir, e.Name()))
		if err != nil {
			return err
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(line, "#") {
				continue
			}
			line = strings.TrimSpace(line)
			name, value, ok := strings.Cut(line, "=")
			if len(line) <= 1 || !ok {
				continue
			}
			cfg.AddBuildFlags(model.BuildFlag{Macro: name, Value: value})
		}
	}
	return nil
}

// ReadCustomBuildScripts attaches the scripts found in dir/customBuildScripts
// to the modules whose name prefixes the script file name.
func ReadCustomBuildScripts(cfg *config.Configuration, dir string) error {
	scriptDir := filepath.Join(dir, ScriptDir)
	entries, err := os.ReadDir(scriptDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, m := range cfg.Modules() {
		for _, e := range entries {
			if !e.IsDir() && strings.HasPrefix(e.Name(), m.Name) {
				m.CustomBuildScript = filepath.Join(scriptDir, e.Name())
			}
		}
	}
	return nil
}
