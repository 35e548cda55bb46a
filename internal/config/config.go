// Package config loads the service configuration from config.yaml and
// SPINE_-prefixed environment variables.
package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig   `koanf:"server"`
	Storage StorageConfig  `koanf:"storage"`
	Confirm ConfirmConfig  `koanf:"confirm"`
	Tools   ToolsConfig    `koanf:"tools"`
	StepUp  StepUpConfig   `koanf:"step_up"`
	Tenants []TenantConfig `koanf:"tenants"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Type     string         `koanf:"type"` // sqlite, memory
	Database DatabaseConfig `koanf:"database"`
}

// DatabaseConfig is the generic database configuration.
type DatabaseConfig struct {
	Driver string `koanf:"driver"` // sqlite, postgres
	DSN    string `koanf:"dsn"`    // Data source name / connection string
}

type ConfirmConfig struct {
	// Secret signs confirmation tokens. Must be shared by all instances.
	// Supports ${VAR} substitution from the environment.
	Secret string `koanf:"secret"`

	// TTL is the confirmation token lifetime, e.g. "5m".
	TTL string `koanf:"ttl"`
}

// ParsedTTL returns the token TTL, defaulting to five minutes.
func (c ConfirmConfig) ParsedTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

type ToolsConfig struct {
	// Timeout bounds each tool invocation, e.g. "10s".
	Timeout string `koanf:"timeout"`
}

// ParsedTimeout returns the tool timeout, defaulting to ten seconds.
func (c ToolsConfig) ParsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// StepUpConfig configures the development step-up verifier: a static
// actor-to-code table. Production deployments replace the verifier with an
// identity-provider adapter and leave this empty.
type StepUpConfig struct {
	StaticCodes map[string]string `koanf:"static_codes"`
}

type TenantConfig struct {
	ID      string         `koanf:"id"`
	Name    string         `koanf:"name"`
	APIKeys []APIKeyConfig `koanf:"api_keys"`
}

// APIKeyConfig maps a hashed API key to the actor it authenticates.
type APIKeyConfig struct {
	KeyHash     string `koanf:"key_hash"`
	Description string `koanf:"description"`
	UserID      string `koanf:"user_id"`
	Role        string `koanf:"role"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml (when present) and overlays SPINE_ environment
// variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = "config.yaml"
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("SPINE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SPINE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "sqlite")
	}
	if !k.Exists("storage.database.driver") {
		k.Set("storage.database.driver", "sqlite")
	}
	if !k.Exists("storage.database.dsn") {
		k.Set("storage.database.dsn", "./data/spine.db")
	}
	if !k.Exists("confirm.ttl") {
		k.Set("confirm.ttl", "5m")
	}
	if !k.Exists("tools.timeout") {
		k.Set("tools.timeout", "10s")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Confirm.Secret = substituteEnvVars(cfg.Confirm.Secret)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
