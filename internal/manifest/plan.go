package manifest

import (
	"fmt"
	"io"

	"github.com/specialistvlad/synbuild/internal/config"
	"gopkg.in/yaml.v3"
)

// Plan is the YAML document describing a resolved configuration.
type Plan struct {
	InstallRoot string            `yaml:"install_root"`
	Modules     []PlanModule      `yaml:"modules"`
	BuildFlags  map[string]string `yaml:"build_flags,omitempty"`
	Unresolved  []string          `yaml:"unresolved,omitempty"`
}

// PlanModule is one module of a Plan, in build order.
type PlanModule struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Path         string   `yaml:"path"`
	Source       string   `yaml:"source"`
	Clone        bool     `yaml:"clone"`
	Build        bool     `yaml:"build"`
	Package      bool     `yaml:"package"`
	Script       string   `yaml:"custom_build_script,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty"`
}

// NewPlan captures the current state of cfg.
func NewPlan(cfg *config.Configuration) Plan {
	p := Plan{InstallRoot: cfg.InstallRoot, Unresolved: cfg.Unresolved()}
	for _, m := range cfg.Modules() {
		p.Modules = append(p.Modules, PlanModule{
			Name:         m.Name,
			Version:      m.Version,
			Path:         m.AbsPath,
			Source:       m.SourceURL(),
			Clone:        m.Clone,
			Build:        m.Build,
			Package:      m.Package,
			Script:       m.CustomBuildScript,
			Dependencies: m.Dependencies,
		})
	}
	if len(cfg.BuildFlags) > 0 {
		p.BuildFlags = make(map[string]string, len(cfg.BuildFlags))
		for _, f := range cfg.BuildFlags {
			p.BuildFlags[f.Macro] = f.Value
		}
	}
	return p
}

// WritePlan encodes the build plan of cfg as YAML.
func WritePlan(w io.Writer, cfg *config.Configuration) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewPlan(cfg)); err != nil {
		return fmt.Errorf("failed to encode build plan: %w", err)
	}
	return enc.Close()
}
