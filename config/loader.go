package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoaderOptions configures Load's search behavior.
type LoaderOptions struct {
	// ConfigDir is the directory searched for environment-specific and
	// fallback config files (default: "config").
	ConfigDir string
	// Environment overrides automatic environment detection.
	Environment string
	// SkipEnvSubstitution disables ${VAR} substitution in StaticKeyDir.
	SkipEnvSubstitution bool
}

// DefaultLoaderOptions returns Load's defaults.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{ConfigDir: "config"}
}

// Load loads a GroupConfig, trying "<ConfigDir>/<environment>.yaml", then
// "<ConfigDir>/default.yaml", then "<ConfigDir>/config.yaml", falling back
// to DefaultGroupConfig if none are found. MPENC_-prefixed environment
// variables always take priority over file contents.
func Load(opts ...LoaderOptions) (*GroupConfig, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	candidates := []string{
		filepath.Join(options.ConfigDir, fmt.Sprintf("%s.yaml", env)),
		filepath.Join(options.ConfigDir, "default.yaml"),
		filepath.Join(options.ConfigDir, "config.yaml"),
	}

	var cfg *GroupConfig
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		break
	}
	if cfg == nil {
		cfg = DefaultGroupConfig()
	}

	if !options.SkipEnvSubstitution {
		cfg.StaticKeyDir = SubstituteEnvVars(cfg.StaticKeyDir)
	}
	ApplyEnvOverrides(cfg)
	return cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad(opts ...LoaderOptions) *GroupConfig {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}
