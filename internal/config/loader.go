package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the manifest found at path and returns a populated
	// Configuration. Modules are added in declaration order.
	Load(ctx context.Context, path string) (*Configuration, error)
}
