// Package config defines the format-agnostic install configuration: the
// ordered module registry, resolved install paths, global build flags and
// injector files.
//
// The `config.Configuration` is the single source of truth for the `deps`,
// `build`, `clone` and `packager` packages. Concrete loaders, such as the
// INSTALL_CONFIG text format or HCL, are provided in separate packages and
// implement the Loader interface.
package config
