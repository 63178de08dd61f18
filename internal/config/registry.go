package config

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/synbuild/internal/model"
)

// Registry is an insertion-ordered collection of modules with O(1) lookup by
// name. The position of a module is its build order. The slice and the name
// index are only ever changed together.
type Registry struct {
	modules []*model.Module
	index   map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Add appends m. A module with the same name already present is replaced in
// place and keeps its position.
func (r *Registry) Add(m *model.Module) {
	if i, ok := r.index[m.Name]; ok {
		r.modules[i] = m
		return
	}
	r.index[m.Name] = len(r.modules)
	r.modules = append(r.modules, m)
}

// Get returns the module registered under name.
func (r *Registry) Get(name string) (*model.Module, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.modules[i], true
}

// Index returns the build position of name, or -1 when absent.
func (r *Registry) Index(name string) int {
	if i, ok := r.index[name]; ok {
		return i
	}
	return -1
}

// At returns the module at position i.
func (r *Registry) At(i int) *model.Module {
	return r.modules[i]
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	return len(r.modules)
}

// Swap exchanges the positions of two modules.
func (r *Registry) Swap(a, b string) error {
	ia, ok := r.index[a]
	if !ok {
		return fmt.Errorf("swap: module %q not registered", a)
	}
	ib, ok := r.index[b]
	if !ok {
		return fmt.Errorf("swap: module %q not registered", b)
	}
	r.modules[ia], r.modules[ib] = r.modules[ib], r.modules[ia]
	r.index[a], r.index[b] = ib, ia
	return nil
}

// Reorder replaces the whole order at once. names must be a permutation of
// the registered module names; otherwise the registry is left untouched.
func (r *Registry) Reorder(names []string) error {
	if len(names) != len(r.modules) {
		return fmt.Errorf("reorder: got %d names for %d modules", len(names), len(r.modules))
	}
	next := make([]*model.Module, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		j, ok := r.index[name]
		if !ok {
			return fmt.Errorf("reorder: module %q not registered", name)
		}
		if seen[name] {
			return fmt.Errorf("reorder: module %q listed twice", name)
		}
		seen[name] = true
		next[i] = r.modules[j]
	}

	r.modules = next
	for i, m := range next {
		r.index[m.Name] = i
	}
	return nil
}

// Modules returns a copy of the ordered module slice. The modules themselves
// are shared.
func (r *Registry) Modules() []*model.Module {
	return slices.Clone(r.modules)
}

// Names returns module names in build order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.modules))
	for i, m := range r.modules {
		names[i] = m.Name
	}
	return names
}
