package model

import (
	"fmt"
	"slices"
	"strings"
)

// URLType identifies how a module's sources are fetched.
type URLType string

const (
	// GitURL sources are cloned with git and checked out at Version.
	GitURL URLType = "GIT_URL"
	// WgetURL sources are downloaded as an archive and unpacked.
	WgetURL URLType = "WGET_URL"
)

// ParseURLType converts a manifest spelling into a URLType.
func ParseURLType(s string) (URLType, error) {
	switch URLType(strings.TrimSpace(s)) {
	case GitURL:
		return GitURL, nil
	case WgetURL:
		return WgetURL, nil
	}
	return "", fmt.Errorf("unknown url type %q", s)
}

// MasterVersion is the sentinel version meaning "whatever the default branch holds".
const MasterVersion = "master"

const versionMacro = "$(VERSION)"

// Module is one installable unit of the stack.
type Module struct {
	Name    string
	Version string

	// RelPath is the declared location, possibly starting with a $(NAME) macro.
	RelPath string
	// AbsPath is filled in by config.Configuration.AddModule.
	AbsPath string

	URLType URLType
	URL     string
	// RelRepo is the repository exactly as declared, Repository has the
	// $(VERSION) token already expanded.
	RelRepo    string
	Repository string

	Clone   bool
	Build   bool
	Package bool

	// CustomBuildScript replaces the make invocation when non-empty.
	CustomBuildScript string

	// Dependencies is an ordered set of module names, populated after clone.
	Dependencies []string
}

// NewModule creates a module, expanding the first $(VERSION) token of repo.
func NewModule(name, version, relPath string, urlType URLType, url, repo string, clone, build, pkg bool) *Module {
	m := &Module{
		Name:    name,
		RelPath: relPath,
		URLType: urlType,
		URL:     url,
		RelRepo: repo,
		Clone:   clone,
		Build:   build,
		Package: pkg,
	}
	m.SetVersion(version)
	return m
}

// SetVersion changes the module version and re-derives Repository from RelRepo.
func (m *Module) SetVersion(version string) {
	m.Version = version
	m.Repository = strings.Replace(m.RelRepo, versionMacro, version, 1)
}

// SourceURL is the full location passed to git or the downloader.
func (m *Module) SourceURL() string {
	return m.URL + m.Repository
}

// HasDependency reports whether name is already recorded as a dependency.
func (m *Module) HasDependency(name string) bool {
	return slices.Contains(m.Dependencies, name)
}

// AddDependency appends name unless it is already present. It reports
// whether the list changed.
func (m *Module) AddDependency(name string) bool {
	if m.HasDependency(name) {
		return false
	}
	m.Dependencies = append(m.Dependencies, name)
	return true
}

// IsGit reports whether the module is fetched with git.
func (m *Module) IsGit() bool {
	return m.URLType == GitURL
}

// String renders a short human readable summary of the module.
func (m *Module) String() string {
	var sb strings.Builder
	sb.WriteString("-----------------------------------------\n")
	fmt.Fprintf(&sb, "Module: %s, Version: %s\n", m.Name, m.Version)
	fmt.Fprintf(&sb, "Install Location Abs: %s\n", m.AbsPath)
	fmt.Fprintf(&sb, "Install Location Rel: %s\n", m.RelPath)
	fmt.Fprintf(&sb, "Repository: %s w/ Type: %s\n", m.SourceURL(), m.URLType)
	fmt.Fprintf(&sb, "Clone: %s, Build: %s, Package: %s\n", FormatFlag(m.Clone), FormatFlag(m.Build), FormatFlag(m.Package))
	return sb.String()
}

// ParseFlag reads the YES/NO spelling used in manifests. Anything other than
// YES (case-insensitive) is false.
func ParseFlag(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "YES")
}

// FormatFlag is the inverse of ParseFlag.
func FormatFlag(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
