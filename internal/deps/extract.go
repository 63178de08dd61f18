// Package deps discovers inter-module build dependencies from generated
// configure/RELEASE files, validates them against the configuration and
// repairs the build order when a module is scheduled before one of its
// dependencies.
package deps

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/ctxlog"
	"github.com/specialistvlad/synbuild/internal/model"
	"github.com/specialistvlad/synbuild/internal/release"
)

// IgnoreList holds RELEASE macros that are not modules.
var IgnoreList = []string{
	"TEMPLATE_TOP", "PCRE", model.Support, "INSTALL_LOCATION_APP",
	"CAPFAST_TEMPLATES", "MAKE_TEST_IOC_APP", "BUILD_IOCS",
}

// ReleasePath is the file the extractor reads for m.
func ReleasePath(m *model.Module) string {
	return filepath.Join(m.AbsPath, "configure", "RELEASE")
}

// Extract appends to m.Dependencies every module referenced by its
// configure/RELEASE file. A module without that file is left untouched.
// Running it again on an unchanged file adds nothing.
func Extract(m *model.Module) ([]string, error) {
	assignments, err := release.ReadAssignments(ReleasePath(m))
	if err != nil {
		return nil, fmt.Errorf("failed to read dependencies of %s: %w", m.Name, err)
	}

	var added []string
	add := func(name string) {
		if m.AddDependency(name) {
			added = append(added, name)
		}
	}

	underAD := strings.HasPrefix(m.RelPath, "$("+model.AreaDetector+")") &&
		m.Name != model.ADSupport && m.Name != model.ADCore

	for _, a := range assignments {
		dep := a.Name
		if dep == m.Name || slices.Contains(IgnoreList, dep) || m.HasDependency(dep) {
			continue
		}
		add(dep)
		if dep == model.AreaDetector || underAD {
			add(model.ADSupport)
			add(model.ADCore)
		}
	}
	return added, nil
}

// Validate extracts dependencies for every module flagged for build, except
// SUPPORT, and demotes modules with a dependency that is missing from the
// configuration or not built. It returns one message per problem; the error
// aggregates them and is nil when every dependency is satisfied.
func Validate(ctx context.Context, cfg *config.Configuration) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Checking module dependencies.")

	var messages []string
	var result *multierror.Error
	for _, m := range cfg.Modules() {
		if !m.Build || m.Name == model.Support {
			continue
		}
		if _, err := Extract(m); err != nil {
			return messages, err
		}
		if len(m.Dependencies) > 0 {
			logger.Info(fmt.Sprintf("%-16s - %v", m.Name, m.Dependencies))
		}

		demote := false
		for _, dep := range m.Dependencies {
			depMod, ok := cfg.Module(dep)
			var msg string
			switch {
			case !ok:
				msg = fmt.Sprintf("Dependency %s for module %s not in install config.", dep, m.Name)
			case !depMod.Build:
				msg = fmt.Sprintf("Dependency %s for module %s not being built.", dep, m.Name)
			default:
				continue
			}
			demote = true
			messages = append(messages, msg)
			result = multierror.Append(result, fmt.Errorf("%s", msg))
		}
		if demote {
			logger.Warn("Module will not be built.", "module", m.Name)
			m.Build = false
		}
	}
	return messages, result.ErrorOrNil()
}
