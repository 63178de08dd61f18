package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/synbuild/internal/build"
)

// Phases selects which parts of the lifecycle run. Loading and validating
// the configuration always happens.
type Phases struct {
	Clone   bool
	Update  bool
	Build   bool
	Package bool
}

// AllPhases runs clone, update and build. Packaging is opt-in.
var AllPhases = Phases{Clone: true, Update: true, Build: true}

// ParsePhases reads a comma separated list such as "clone,update,build".
func ParsePhases(s string) (Phases, error) {
	var p Phases
	for _, name := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "clone":
			p.Clone = true
		case "update":
			p.Update = true
		case "build":
			p.Build = true
		case "package":
			p.Package = true
		case "":
		default:
			return Phases{}, fmt.Errorf("unknown phase %q", name)
		}
	}
	return p, nil
}

func (p Phases) String() string {
	var names []string
	for _, ph := range []struct {
		on   bool
		name string
	}{{p.Clone, "clone"}, {p.Update, "update"}, {p.Build, "build"}, {p.Package, "package"}} {
		if ph.on {
			names = append(names, ph.name)
		}
	}
	return strings.Join(names, ",")
}

// Logging replaces the global print toggles of a run.
type Logging struct {
	Debug          bool
	PrintCommands  bool
	WithTimestamps bool
	// Format is "text" or "json".
	Format string
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ConfigurePath is a configure directory, an INSTALL_CONFIG file or an
	// .hcl file.
	ConfigurePath   string
	InstallOverride string

	Phases Phases
	Build  build.Options

	// Init writes the default configure directory to ConfigurePath instead
	// of running the install.
	Init bool

	SyncTags         bool
	DependencyScript string
	// AllowIllegal skips the install location check.
	AllowIllegal bool
	// PlanPath receives the YAML build plan when non-empty.
	PlanPath string

	OutputDir   string
	WithSources bool

	// CommandTimeout bounds every external command when positive.
	CommandTimeout time.Duration

	Logging Logging
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigurePath == "" {
		return nil, errors.New("ConfigurePath is a required configuration field and cannot be empty")
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.Logging.Format)
	}
	if cfg.Build.Threads < 0 {
		return nil, fmt.Errorf("invalid thread count %d", cfg.Build.Threads)
	}
	if cfg.Build.Jobs < 0 {
		return nil, fmt.Errorf("invalid job count %d", cfg.Build.Jobs)
	}
	if cfg.CommandTimeout < 0 {
		return nil, errors.New("command timeout must not be negative")
	}
	return &cfg, nil
}
