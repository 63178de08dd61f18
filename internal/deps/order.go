package deps

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/synbuild/internal/config"
	"github.com/specialistvlad/synbuild/internal/ctxlog"
	"github.com/specialistvlad/synbuild/internal/dag"
	"github.com/specialistvlad/synbuild/internal/model"
)

// ErrUnresolvableOrder is returned when no build order satisfies every
// declared dependency.
var ErrUnresolvableOrder = errors.New("unresolvable module build order")

// Violation is a module scheduled before one of its dependencies.
type Violation struct {
	Module     string
	Dependency string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s is built before its dependency %s", v.Module, v.Dependency)
}

// CheckOrder returns the first module, in build order, that is scheduled
// before one of its dependencies. Dependencies that are not part of the
// configuration are ignored.
func CheckOrder(cfg *config.Configuration) (Violation, bool) {
	for _, m := range cfg.Modules() {
		idx := cfg.Index(m.Name)
		for _, dep := range m.Dependencies {
			depIdx := cfg.Index(dep)
			if depIdx < 0 {
				continue
			}
			if idx < depIdx {
				return Violation{Module: m.Name, Dependency: dep}, true
			}
		}
	}
	return Violation{}, false
}

// Graph builds the dependency graph of every module in cfg. Edges to names
// outside the configuration are dropped.
func Graph(cfg *config.Configuration) *dag.Graph {
	return graphOf(cfg.Modules(), func(name string) bool { return cfg.Index(name) >= 0 })
}

// BuildGraph is Graph restricted to modules flagged for build.
func BuildGraph(cfg *config.Configuration) *dag.Graph {
	var mods []*model.Module
	for _, m := range cfg.Modules() {
		if m.Build {
			mods = append(mods, m)
		}
	}
	return graphOf(mods, nil)
}

func graphOf(mods []*model.Module, include func(string) bool) *dag.Graph {
	g := dag.New()
	for _, m := range mods {
		g.AddNode(m.Name)
	}
	for _, m := range mods {
		for _, dep := range m.Dependencies {
			if include != nil && !include(dep) {
				continue
			}
			if !g.Has(dep) || dep == m.Name {
				continue
			}
			// Both nodes exist and differ, AddEdge cannot fail.
			_ = g.AddEdge(dep, m.Name)
		}
	}
	return g
}

// RepairOrder swaps violating pairs until CheckOrder reports none and
// returns the number of swaps made. A cyclic dependency declaration is
// rejected up front. If the swap budget of n*n is exhausted on an acyclic
// graph the stable topological order is applied instead.
func RepairOrder(ctx context.Context, cfg *config.Configuration) (int, error) {
	logger := ctxlog.FromContext(ctx)

	g := Graph(cfg)
	if err := g.DetectCycles(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnresolvableOrder, err)
	}

	limit := max(cfg.Len()*cfg.Len(), 1)
	swaps := 0
	for {
		v, found := CheckOrder(cfg)
		if !found {
			return swaps, nil
		}
		if swaps >= limit {
			break
		}
		if err := cfg.Swap(v.Module, v.Dependency); err != nil {
			return swaps, err
		}
		swaps++
		logger.Info(fmt.Sprintf("Swapping build order of %s and %s", v.Module, v.Dependency))
	}

	logger.Warn("Swap budget exhausted, applying topological order.", "swaps", swaps)
	order, err := g.TopologicalSort()
	if err != nil {
		return swaps, fmt.Errorf("%w: %w", ErrUnresolvableOrder, err)
	}
	if err := cfg.Reorder(order); err != nil {
		return swaps, err
	}
	if v, found := CheckOrder(cfg); found {
		return swaps, fmt.Errorf("%w: %s", ErrUnresolvableOrder, v)
	}
	return swaps, nil
}
