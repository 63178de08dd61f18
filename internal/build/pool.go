package build

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/synbuild/internal/ctxlog"
	"github.com/specialistvlad/synbuild/internal/dag"
)

// job tracks one module inside the worker pool.
type job struct {
	name string
	// pending counts dependencies that have not been built yet.
	pending atomic.Int32
	// done guarantees the job is finished exactly once, whether it ran or
	// was skipped.
	done sync.Once
}

// buildParallel builds the flagged modules and their dependency closure
// with Options.Jobs workers.
func (d *Driver) buildParallel(ctx context.Context, g *dag.Graph, order []string) Result {
	logger := ctxlog.FromContext(ctx)

	need := map[string]bool{}
	for _, name := range order {
		m, _ := d.cfg.Module(name)
		if !m.Build {
			continue
		}
		closure, err := g.DependencyClosure(name)
		if err != nil {
			d.abort(err.Error())
			return d.snapshot()
		}
		for _, n := range closure {
			need[n] = true
		}
	}

	jobs := make(map[string]*job, len(need))
	position := make(map[string]int, len(need))
	for i, name := range order {
		if !need[name] {
			continue
		}
		position[name] = i
		j := &job{name: name}
		deps, _ := g.Dependencies(name)
		for _, dep := range deps {
			if need[dep] {
				j.pending.Add(1)
			}
		}
		jobs[name] = j
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ready := make(chan *job, len(jobs))
	var wg sync.WaitGroup
	wg.Add(len(jobs))

	logger.Debug("Initializing build pool, finding root modules...")
	for _, name := range order {
		if j, ok := jobs[name]; ok && j.pending.Load() == 0 {
			ready <- j
		}
	}

	var skipDependents func(name string)
	skipDependents = func(name string) {
		dependents, _ := g.Dependents(name)
		for _, dep := range dependents {
			j, ok := jobs[dep]
			if !ok {
				continue
			}
			j.done.Do(func() {
				logger.Warn("Skipping module due to upstream failure.", "module", dep, "dependency", name)
				d.set(dep, Skipped, true)
				wg.Done()
				skipDependents(dep)
			})
		}
	}

	worker := func(workerID int) {
		logger.Debug("Worker started.", "workerID", workerID)
		for j := range ready {
			j.done.Do(func() {
				defer wg.Done()
				workerLogger := logger.With("workerID", workerID, "module", j.name)

				if err := runCtx.Err(); err != nil {
					workerLogger.Warn("Run stopped, skipping module.")
					d.set(j.name, Skipped, true)
					skipDependents(j.name)
					return
				}

				status := d.attempt(runCtx, g, j.name)
				if d.aborted() {
					cancel()
				}
				if status != Built {
					skipDependents(j.name)
					return
				}

				dependents, _ := g.Dependents(j.name)
				for _, dep := range dependents {
					if dj, ok := jobs[dep]; ok && dj.pending.Add(-1) == 0 {
						workerLogger.Debug("Unlocking dependent module.", "dependent", dep)
						ready <- dj
					}
				}
			})
		}
		logger.Debug("Worker finished.", "workerID", workerID)
	}

	logger.Info("Starting parallel build.", "workers", d.opts.Jobs, "modules", len(jobs), "make_flag", d.opts.MakeFlag())
	for i := 0; i < d.opts.Jobs; i++ {
		go worker(i)
	}

	wg.Wait()
	close(ready)

	if err := ctx.Err(); err != nil {
		d.abort(fmt.Sprintf("cancelled: %v", err))
	}

	r := d.snapshot()
	byPosition := func(a, b string) int { return position[a] - position[b] }
	slices.SortFunc(r.Built, byPosition)
	slices.SortFunc(r.Failed, byPosition)
	slices.SortFunc(r.Skipped, byPosition)
	return r
}
