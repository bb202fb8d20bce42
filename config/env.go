package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// envVarPattern matches ${VAR} or ${VAR:default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment
// variable values.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// ApplyEnvOverrides overrides cfg's fields from MPENC_-prefixed
// environment variables, taking priority over both file contents and
// built-in defaults.
func ApplyEnvOverrides(cfg *GroupConfig) {
	if v := os.Getenv("MPENC_STATIC_KEY_DIR"); v != "" {
		cfg.StaticKeyDir = v
	}
	if v := os.Getenv("MPENC_PADDING_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PaddingSize = n
		}
	}
	if v := os.Getenv("MPENC_SESSION_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.MaxAge = d
		}
	}
	if v := os.Getenv("MPENC_SESSION_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.IdleTimeout = d
		}
	}
	if v := os.Getenv("MPENC_SESSION_MAX_MESSAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.MaxMessages = n
		}
	}
	if v := os.Getenv("MPENC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MPENC_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MPENC_LOG_OUTPUT"); v != "" {
		cfg.Logging.Output = v
	}
}

// GetEnvironment returns the deployment environment from MPENC_ENV,
// defaulting to "development".
func GetEnvironment() string {
	env := os.Getenv("MPENC_ENV")
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction reports whether GetEnvironment is "production".
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsDevelopment reports whether GetEnvironment is "development" or
// "local".
func IsDevelopment() bool {
	env := GetEnvironment()
	return env == "development" || env == "local"
}
