package app

import (
	"github.com/specialistvlad/synbuild/internal/build"
	"github.com/specialistvlad/synbuild/internal/clone"
	"github.com/specialistvlad/synbuild/internal/packager"
	"github.com/specialistvlad/synbuild/internal/tags"
)

// Report collects what each phase of a run did. Phases that did not run
// leave their fields empty.
type Report struct {
	RunID       string
	InstallRoot string
	// Order is the final build order after dependency repair.
	Order []string

	TagUpdates []tags.Update
	Clone      clone.Result
	// DependencyProblems holds one message per missing or unbuilt
	// dependency. The affected modules were demoted.
	DependencyProblems []string
	Build              *build.Result
	Bundle             *packager.Bundle
}

// OK reports whether every cloned and built module succeeded.
func (r *Report) OK() bool {
	if len(r.Clone.Failed) > 0 {
		return false
	}
	return r.Build == nil || r.Build.OK()
}

// excluded lists modules that must not be packaged.
func (r *Report) excluded() []string {
	if r.Build == nil {
		return nil
	}
	return append(append([]string(nil), r.Build.Failed...), r.Build.Skipped...)
}
