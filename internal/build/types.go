package build

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/specialistvlad/synbuild/internal/model"
)

// NonBuildable modules are containers or documentation. Building them is an
// immediate success.
var NonBuildable = []string{model.Support, model.Configure, model.Utils, model.Documentation, model.AreaDetector}

// Critical modules abort the whole run when they fail to build.
var Critical = []string{model.Base, model.Asyn, model.SncSeq}

// IsCritical reports whether a failure of name aborts the run.
func IsCritical(name string) bool {
	return lo.Contains(Critical, name)
}

func isNoop(name string) bool {
	return lo.Contains(NonBuildable, name)
}

// Options control how make is invoked.
type Options struct {
	// Threads is the make job count, zero means unbounded.
	Threads int
	// SingleThread forces a serial make and wins over Threads.
	SingleThread bool
	// Jobs is the number of modules built at the same time. Values below
	// two keep the sequential driver.
	Jobs int
}

// MakeFlag returns -s, -sj or -sjN.
func (o Options) MakeFlag() string {
	switch {
	case o.SingleThread:
		return "-s"
	case o.Threads <= 0:
		return "-sj"
	default:
		return fmt.Sprintf("-sj%d", o.Threads)
	}
}

// Status is the per-run state of one module.
type Status int

const (
	Unbuilt Status = iota
	Built
	Failed
	Skipped
)

func (s Status) String() string {
	switch s {
	case Unbuilt:
		return "unbuilt"
	case Built:
		return "built"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Result summarizes a BuildAll run. Names are listed in build order.
type Result struct {
	Built   []string
	Failed  []string
	Skipped []string
	// Aborted is set when a critical failure, a failed release fixup or
	// cancellation stopped the run early.
	Aborted     bool
	AbortReason string
}

// OK reports whether every attempted module was built.
func (r Result) OK() bool {
	return !r.Aborted && len(r.Failed) == 0 && len(r.Skipped) == 0
}
