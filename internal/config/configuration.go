package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/specialistvlad/synbuild/internal/macro"
	"github.com/specialistvlad/synbuild/internal/model"
)

// Configuration owns the ordered module list plus the state shared by every
// phase of a run.
type Configuration struct {
	// InstallRoot is the absolute top level install location.
	InstallRoot string
	// ConfigureDir is the directory the manifest was loaded from, if any.
	ConfigureDir string

	// Cached absolute paths of the well-known root modules. They are set as
	// a side effect of adding those modules.
	BasePath         string
	SupportPath      string
	AreaDetectorPath string
	MotorPath        string

	BuildFlags    []model.BuildFlag
	InjectorFiles []model.InjectorFile

	registry   *Registry
	unresolved []string
}

// New creates an empty configuration rooted at installRoot. The root is made
// absolute and loses any trailing separator.
func New(installRoot, configureDir string) *Configuration {
	root := filepath.Clean(installRoot)
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Configuration{
		InstallRoot:  root,
		ConfigureDir: configureDir,
		registry:     NewRegistry(),
	}
}

// AddModule resolves the module path against the state known so far and
// appends the module to the build order. Every module is registered, even
// when it is neither cloned nor built. A path that cannot be resolved yet
// is kept verbatim as AbsPath and reported by Unresolved.
func (c *Configuration) AddModule(m *model.Module) {
	res := c.ResolvePath(m.RelPath)
	m.AbsPath = res.Path
	if res.OK() {
		c.unresolved = slices.DeleteFunc(c.unresolved, func(n string) bool { return n == m.Name })
		c.cacheRoot(m)
	} else {
		c.markUnresolved(m.Name)
	}
	c.registry.Add(m)
}

// ResolvePath resolves a path expression with the well-known roots first
// and any previously added module second.
func (c *Configuration) ResolvePath(expr string) macro.Resolution {
	return macro.Resolve(expr, c.lookupRoot)
}

func (c *Configuration) lookupRoot(name string) (string, bool) {
	switch name {
	case model.InstallMacro:
		return c.InstallRoot, c.InstallRoot != ""
	case model.Base:
		if c.BasePath != "" {
			return c.BasePath, true
		}
	case model.Support:
		if c.SupportPath != "" {
			return c.SupportPath, true
		}
	case model.AreaDetector:
		if c.AreaDetectorPath != "" {
			return c.AreaDetectorPath, true
		}
	case model.Motor:
		if c.MotorPath != "" {
			return c.MotorPath, true
		}
	}

	m, ok := c.registry.Get(name)
	if !ok || slices.Contains(c.unresolved, name) {
		return "", false
	}
	return m.AbsPath, true
}

func (c *Configuration) cacheRoot(m *model.Module) {
	switch m.Name {
	case model.Base:
		c.BasePath = m.AbsPath
	case model.Support:
		c.SupportPath = m.AbsPath
	case model.AreaDetector:
		c.AreaDetectorPath = m.AbsPath
	case model.Motor:
		c.MotorPath = m.AbsPath
	}
}

func (c *Configuration) markUnresolved(name string) {
	if !slices.Contains(c.unresolved, name) {
		c.unresolved = append(c.unresolved, name)
	}
}

// Finalize retries every deferred module path until no more progress is
// made, and returns the names that still cannot be resolved.
func (c *Configuration) Finalize() []string {
	for progress := true; progress && len(c.unresolved) > 0; {
		progress = false
		for _, name := range slices.Clone(c.unresolved) {
			m, _ := c.registry.Get(name)
			res := c.ResolvePath(m.RelPath)
			if !res.OK() {
				continue
			}
			m.AbsPath = res.Path
			c.unresolved = slices.DeleteFunc(c.unresolved, func(n string) bool { return n == name })
			c.cacheRoot(m)
			progress = true
		}
	}
	return c.Unresolved()
}

// Unresolved lists modules whose path still holds an unresolved macro.
func (c *Configuration) Unresolved() []string {
	return slices.Clone(c.unresolved)
}

// Module returns the module registered under name.
func (c *Configuration) Module(name string) (*model.Module, bool) {
	return c.registry.Get(name)
}

// Index returns the build position of name, or -1 when absent.
func (c *Configuration) Index(name string) int {
	return c.registry.Index(name)
}

// Swap exchanges the build positions of two modules.
func (c *Configuration) Swap(a, b string) error {
	return c.registry.Swap(a, b)
}

// Reorder replaces the build order with names.
func (c *Configuration) Reorder(names []string) error {
	return c.registry.Reorder(names)
}

// Modules returns the modules in build order.
func (c *Configuration) Modules() []*model.Module {
	return c.registry.Modules()
}

// Len returns the number of modules.
func (c *Configuration) Len() int {
	return c.registry.Len()
}

// Names returns all module names in build order.
func (c *Configuration) Names() []string {
	return c.registry.Names()
}

// BuildNames returns the names of modules flagged for build, in build order.
func (c *Configuration) BuildNames() []string {
	var names []string
	for _, m := range c.registry.modules {
		if m.Build {
			names = append(names, m.Name)
		}
	}
	return names
}

// CoreVersion returns the selected ADCore version, or "" when ADCore is not
// part of the configuration.
func (c *Configuration) CoreVersion() string {
	if m, ok := c.registry.Get(model.ADCore); ok {
		return m.Version
	}
	return ""
}

// AddBuildFlags appends global macro/value pairs. Later flags with the same
// macro override earlier ones.
func (c *Configuration) AddBuildFlags(flags ...model.BuildFlag) {
	for _, f := range flags {
		i := slices.IndexFunc(c.BuildFlags, func(b model.BuildFlag) bool { return b.Macro == f.Macro })
		if i >= 0 {
			c.BuildFlags[i] = f
			continue
		}
		c.BuildFlags = append(c.BuildFlags, f)
	}
}

// AddInjectorFile registers a block of text to append to target.
func (c *Configuration) AddInjectorFile(name, contents, target string) {
	c.InjectorFiles = append(c.InjectorFiles, model.InjectorFile{Name: name, Contents: contents, Target: target})
}

// Macros returns a NAME to absolute path pair for every resolved module, in
// build order. INSTALL is not included.
func (c *Configuration) Macros() []model.BuildFlag {
	out := make([]model.BuildFlag, 0, c.registry.Len())
	for _, m := range c.registry.modules {
		if macro.Contains(m.AbsPath) {
			continue
		}
		out = append(out, model.BuildFlag{Macro: m.Name, Value: m.AbsPath})
	}
	return out
}

// ErrInstallRoot is returned when the install location cannot be used.
var ErrInstallRoot = errors.New("invalid install location")

// ValidateInstallRoot checks that the install root, or its parent when the
// root does not exist yet, is a writable directory.
func (c *Configuration) ValidateInstallRoot() error {
	target := c.InstallRoot
	if _, err := os.Stat(target); err != nil {
		target = filepath.Dir(c.InstallRoot)
	}
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("%w: install location and parent directory do not exist", ErrInstallRoot)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInstallRoot, target)
	}

	probe, err := os.CreateTemp(target, ".synbuild-probe-*")
	if err != nil {
		return fmt.Errorf("%w: permission error: %s", ErrInstallRoot, target)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// String renders the install location and every cloned module.
func (c *Configuration) String() string {
	var sb strings.Builder
	sb.WriteString("--------------------------------\n")
	fmt.Fprintf(&sb, "Install Location = %s\n", c.InstallRoot)
	if c.ConfigureDir != "" {
		fmt.Fprintf(&sb, "This Install Config is saved at %s\n", c.ConfigureDir)
	}
	for _, m := range c.registry.modules {
		if m.Clone {
			sb.WriteString(m.String())
		}
	}
	return sb.String()
}
