// Package build drives the compilation of modules with the external build
// tool, strictly in dependency order.
//
// The driver computes one stable topological order from the module
// dependency graph and walks it. A module is attempted only once every
// module it depends on has been built; dependents of a failed module are
// skipped instead of attempted. A failure of a critical module stops the
// run. After EPICS base has been built, the support area release files are
// made consistent before any other module is attempted.
//
// With Options.Jobs above one, independent modules are built concurrently by
// a worker pool that releases a module as soon as its dependencies are done.
package build
