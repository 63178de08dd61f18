package hcl

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/samber/lo"
	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/ctxlog"
	"github.com/specialistvlad/synbuild/internal/fsutil"
	"github.com/specialistvlad/synbuild/internal/manifest"
	"github.com/specialistvlad/synbuild/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	// InstallOverride replaces the install attribute when non-empty.
	InstallOverride string
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader.
func NewLoader(installOverride string) *Loader {
	return &Loader{InstallOverride: installOverride}
}

// Load reads every .hcl file below path, or the single file path names.
// Files are merged in lexical order.
func (l *Loader) Load(ctx context.Context, path string) (*config.Configuration, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", manifest.ErrConfigureNotFound, path)
	}
	dir, files := path, []string{path}
	if info.IsDir() {
		if files, err = fsutil.FindFiles(path, ".hcl"); err != nil {
			return nil, err
		}
	} else {
		dir = filepath.Dir(path)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no .hcl files in %s", manifest.ErrConfigureNotFound, path)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	roots, install, err := l.parseFiles(files)
	if err != nil {
		return nil, err
	}
	cfg := config.New(strings.TrimSuffix(install, "/"), dir)

	if err := l.addModules(ctx, cfg, roots); err != nil {
		return nil, err
	}
	injectors := 0
	for _, root := range roots {
		for _, f := range root.BuildFlags {
			cfg.AddBuildFlags(model.BuildFlag{Macro: f.Name, Value: f.Value})
		}
		for _, inj := range root.Injectors {
			cfg.AddInjectorFile(inj.Name, inj.Contents, inj.Target)
			injectors++
		}
	}
	if injectors == 0 {
		logger.Debug("No injector blocks found, generating defaults.")
		for _, inj := range manifest.DefaultInjectors() {
			cfg.AddInjectorFile(inj.Name, inj.Contents, inj.Target)
		}
	}
	if err := manifest.ReadCustomBuildScripts(cfg, dir); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.", "modules", cfg.Len(), "build_flags", len(cfg.BuildFlags), "injectors", len(cfg.InjectorFiles))
	return cfg, nil
}

func (l *Loader) parseFiles(files []string) ([]*fileRoot, string, error) {
	parser := hclparse.NewParser()
	var roots []*fileRoot
	install := ""
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, "", fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, "", fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if root.Install != "" {
			if install != "" && install != root.Install {
				return nil, "", fmt.Errorf("install defined twice: %q and %q in %s", install, root.Install, file)
			}
			install = root.Install
		}
		roots = append(roots, &root)
	}

	if l.InstallOverride != "" {
		install = l.InstallOverride
	}
	if install == "" {
		return nil, "", manifest.ErrNoInstall
	}
	return roots, install, nil
}

// addModules decodes module bodies in declaration order. Each body sees the
// versions of the modules added before it.
func (l *Loader) addModules(ctx context.Context, cfg *config.Configuration, roots []*fileRoot) error {
	logger := ctxlog.FromContext(ctx)
	versions := map[string]cty.Value{}

	for _, root := range roots {
		for _, src := range root.Sources {
			urlType, err := sourceType(src.Type)
			if err != nil {
				return err
			}
			url := src.URL
			if !strings.HasSuffix(url, "/") {
				url += "/"
			}
			for _, mb := range src.Modules {
				evalCtx := &hcl.EvalContext{
					Variables: map[string]cty.Value{"version": cty.ObjectVal(maps.Clone(versions))},
				}
				var attrs moduleAttrs
				if diags := gohcl.DecodeBody(mb.Body, evalCtx, &attrs); diags.HasErrors() {
					return fmt.Errorf("failed to decode module %s: %w", mb.Name, diags)
				}
				pkg := lo.Contains(model.RequiredInPackage, mb.Name) || lo.FromPtrOr(attrs.Package, false)
				m := model.NewModule(mb.Name, attrs.Version, attrs.Path, urlType, url, attrs.Repo,
					lo.FromPtrOr(attrs.Clone, true), lo.FromPtrOr(attrs.Build, true), pkg)
				logger.Debug(fmt.Sprintf("Parsed install module: %s", m.Name))
				cfg.AddModule(m)
				versions[mb.Name] = cty.StringVal(attrs.Version)
			}
		}
	}
	return nil
}

func sourceType(label string) (model.URLType, error) {
	switch strings.ToLower(label) {
	case "git":
		return model.GitURL, nil
	case "wget":
		return model.WgetURL, nil
	}
	return model.ParseURLType(label)
}
