// Package config provides unified process configuration for the bobai
// server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (BOBAI_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
//
// This is the process-wide server config (listen address, upstream
// provider, session store, auth). It is distinct from Resolver, which
// resolves the per-project provider/model pair from .bobai/bobai.json
// (spec.md §4.8).
package config

import "time"

// Config holds all configuration for the bobai server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Provider      ProviderConfig      `yaml:"provider"`
	Session       SessionConfig       `yaml:"session"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
}

// ProviderConfig holds the upstream Chat Completions backend settings
// (spec.md §4.2, §6). There is one wire protocol; Name only labels which
// backend instance this process talks to.
type ProviderConfig struct {
	Name             string `yaml:"name"`               // default: "openai-compat"
	BackendURL       string `yaml:"backend_url"`        // required
	APIKey           string `yaml:"api_key"`             // optional
	APIKeyFile       string `yaml:"api_key_file"`        // _file variant for api_key
	DefaultModel     string `yaml:"default_model"`       // optional, overridden per-project by Resolver
	IterationCeiling int    `yaml:"iteration_ceiling"`   // default: 10, spec.md §4.5 runaway-loop guard
}

// SessionConfig holds session store settings (spec.md §4.3, §6).
type SessionConfig struct {
	Type       string         `yaml:"type"`        // "sqlite" or "postgres", default: "sqlite"
	SQLitePath string         `yaml:"sqlite_path"` // default: ".bobai/bobai.db"
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey", "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`      // settings for type=jwt
}

// JWTConfig holds settings for the JWT/OIDC authenticator (pkg/auth/jwt).
type JWTConfig struct {
	Issuer      string        `yaml:"issuer"`
	Audience    string        `yaml:"audience"`
	JWKSURL     string        `yaml:"jwks_url"` // required for type=jwt
	UserClaim   string        `yaml:"user_claim"`
	TenantClaim string        `yaml:"tenant_claim"`
	ScopesClaim string        `yaml:"scopes_claim"`
	CacheTTL    time.Duration `yaml:"cache_ttl"` // default: 1h
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key"`
	KeyFile     string `yaml:"key_file"` // _file variant for key
	Subject     string `yaml:"subject"`
	TenantID    string `yaml:"tenant_id"`
	ServiceTier string `yaml:"service_tier"`
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Provider: ProviderConfig{
			Name:             "openai-compat",
			IterationCeiling: 10,
		},
		Session: SessionConfig{
			Type:       "sqlite",
			SQLitePath: ".bobai/bobai.db",
			Postgres: PostgresConfig{
				MaxConns:       25,
				MigrateOnStart: true,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
