// Package config decodes Gantry's host configuration from the environment.
// The bootstrap core only reads these values; establishing them is the
// launcher's job.
package config

import (
	"fmt"

	"github.com/joeshaw/envdecode"
)

// Config is the environment contract shared by the CLI and the library.
type Config struct {
	// BundlePath selects bundled dependency resolution when set. The -b
	// flag overrides it.
	BundlePath string `env:"GANTRY_BUNDLE_PATH"`

	// PkgHome and PkgPath establish the default package roots consumed by
	// the guest package registry in default mode.
	PkgHome string `env:"GANTRY_PKG_HOME"`
	PkgPath string `env:"GANTRY_PKG_PATH"`

	// DataDir holds the state module's database.
	DataDir string `env:"GANTRY_DATA_DIR,default=./data"`

	// CodeOrigin overrides the resolved self-location URL in irregular
	// deployments.
	CodeOrigin string `env:"GANTRY_CODE_ORIGIN"`

	// MemoryLimitMB caps the engine heap; 0 keeps the engine default.
	MemoryLimitMB int `env:"GANTRY_MEMORY_LIMIT_MB,default=0"`
}

// Load decodes the configuration from the current environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding environment: %w", err)
	}
	return &cfg, nil
}
