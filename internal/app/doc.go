// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the install lifecycle (load, clone, update,
// dependency ordering, build, package), decoupled from any specific
// entrypoint like a CLI.
package app
