// Package model defines the value types shared by every layer of synbuild:
// the Module record describing one buildable unit of the software stack, the
// build flag pairs applied to configure files, and the injector files appended
// to generated configuration after the update phase.
//
// The types in this package carry no behaviour beyond simple invariants that
// must hold from construction onwards (for example, a Module's Repository
// never contains an unexpanded $(VERSION) token). Ordering, path resolution
// and dependency bookkeeping belong to the config and deps packages.
package model
