// Package config provides configuration loading for a group chat
// deployment: protocol parameters, session lifecycle policy, and the
// static-key directory source, loaded from YAML with MPENC_-prefixed
// environment overrides.
//
// Grounded on the teacher's config package for the YAML-then-JSON
// LoadFromFile/SaveToFile shape and setDefaults pattern; the teacher's own
// fields (Blockchain, DID, KeyStore, Metrics, Health) are specific to its
// agent-registry domain and have no SPEC_FULL.md component to bind to, so
// this file replaces them with this module's own GroupConfig rather than
// adapting them in place.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GroupConfig is the configuration surface for one group chat participant.
type GroupConfig struct {
	ProtocolVersion byte          `yaml:"protocol_version" json:"protocol_version"`
	PaddingSize     int           `yaml:"padding_size" json:"padding_size"`
	StaticKeyDir    string        `yaml:"static_key_dir" json:"static_key_dir"`
	Session         SessionConfig `yaml:"session" json:"session"`
	Logging         LoggingConfig `yaml:"logging" json:"logging"`
}

// SessionConfig mirrors session.Config, kept as its own YAML-tagged type
// so config stays independent of the session package's import graph.
type SessionConfig struct {
	MaxAge      time.Duration `yaml:"max_age" json:"max_age"`
	IdleTimeout time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	MaxMessages int           `yaml:"max_messages" json:"max_messages"`
}

// LoggingConfig controls the internal/logger setup.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// DefaultGroupConfig returns the configuration this module runs with when
// no file or environment override supplies one.
func DefaultGroupConfig() *GroupConfig {
	return &GroupConfig{
		ProtocolVersion: 1,
		PaddingSize:     32,
		StaticKeyDir:    ".mpenc/keys",
		Session: SessionConfig{
			MaxAge:      time.Hour,
			IdleTimeout: 10 * time.Minute,
			MaxMessages: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// LoadFromFile loads a GroupConfig from path, trying YAML then JSON,
// applying defaults for anything the file leaves zero.
func LoadFromFile(path string) (*GroupConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := DefaultGroupConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("config: parse file (tried YAML and JSON): %w", err)
		}
	}
	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path. JSON is used for a ".json" extension;
// YAML otherwise.
func SaveToFile(cfg *GroupConfig, path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

func setDefaults(cfg *GroupConfig) {
	if cfg.ProtocolVersion == 0 {
		cfg.ProtocolVersion = 1
	}
	if cfg.StaticKeyDir == "" {
		cfg.StaticKeyDir = ".mpenc/keys"
	}
	if cfg.Session.MaxAge == 0 {
		cfg.Session.MaxAge = time.Hour
	}
	if cfg.Session.IdleTimeout == 0 {
		cfg.Session.IdleTimeout = 10 * time.Minute
	}
	if cfg.Session.MaxMessages == 0 {
		cfg.Session.MaxMessages = 1000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}
